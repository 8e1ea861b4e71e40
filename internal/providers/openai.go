package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/opencode/internal/auth"
	"github.com/haasonsaas/opencode/internal/tools"
	"github.com/haasonsaas/opencode/pkg/models"
)

// OpenAIProvider talks to the OpenAI chat completions API.
//
// The API key is taken from the credential store when present, otherwise
// from OPENAI_API_KEY. Tool calls stream incrementally and are accumulated
// per delta index until the stream reports they are complete.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider builds the provider. A missing key yields a provider
// whose calls fail with a clear error, so startup never blocks on auth.
func NewOpenAIProvider(store *auth.Store) *OpenAIProvider {
	key := os.Getenv("OPENAI_API_KEY")
	if store != nil {
		if cred, ok, _ := store.Get("openai"); ok && cred.Type == auth.CredentialAPIKey && cred.Key != "" {
			key = cred.Key
		}
	}
	if key == "" {
		return &OpenAIProvider{}
	}
	return &OpenAIProvider{client: openai.NewClient(key)}
}

func (p *OpenAIProvider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		ID:           "openai",
		Name:         "OpenAI",
		Description:  "OpenAI GPT models",
		RequiresAuth: true,
		Models: []models.ModelInfo{
			{ID: "gpt-4o", Name: "GPT-4o", ContextLength: 128000, SupportsTools: true, SupportsStreaming: true, CostPerInputTok: 2.5e-06, CostPerOutputTok: 1e-05},
			{ID: "gpt-4.1", Name: "GPT-4.1", ContextLength: 1047576, SupportsTools: true, SupportsStreaming: true, CostPerInputTok: 2e-06, CostPerOutputTok: 8e-06},
			{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextLength: 128000, SupportsTools: true, SupportsStreaming: true, CostPerInputTok: 1e-05, CostPerOutputTok: 3e-05},
			{ID: "gpt-4", Name: "GPT-4", ContextLength: 8192, SupportsTools: true, SupportsStreaming: true, CostPerInputTok: 3e-05, CostPerOutputTok: 6e-05},
			{ID: "o3-mini", Name: "o3-mini", ContextLength: 200000, SupportsTools: true, SupportsStreaming: true, CostPerInputTok: 1.1e-06, CostPerOutputTok: 4.4e-06},
		},
	}
}

// IsAuthenticated probes the API with a model listing request.
func (p *OpenAIProvider) IsAuthenticated(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Chat performs a blocking completion.
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.client == nil {
		return nil, errors.New("openai: API key not configured")
	}
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	choice := resp.Choices[0]
	out := &ChatResponse{
		Content: choice.Message.Content,
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID: tc.ID,
			Function: models.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out, nil
}

// ChatStream performs a streaming completion. Text deltas are emitted as
// they arrive; tool calls are accumulated across deltas keyed by index and
// emitted once the stream marks them complete.
func (p *OpenAIProvider) ChatStream(ctx context.Context, req *ChatRequest) (<-chan *Chunk, error) {
	if p.client == nil {
		return nil, errors.New("openai: API key not configured")
	}
	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	chunks := make(chan *Chunk)
	go processOpenAIStream(ctx, stream, chunks)
	return chunks, nil
}

func (p *OpenAIProvider) buildRequest(req *ChatRequest, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
		Stream:   stream,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		out.Tools = toOpenAITools(req.Tools)
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

func processOpenAIStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *Chunk) {
	defer close(chunks)
	defer stream.Close()

	// Tool calls arrive fragmented across deltas; index tracks parallel
	// calls.
	pending := make(map[int]*models.ToolCall)
	var order []int
	var usage *models.Usage

	flush := func() []models.ToolCall {
		var out []models.ToolCall
		for _, idx := range order {
			tc := pending[idx]
			if tc != nil && tc.ID != "" && tc.Function.Name != "" {
				out = append(out, *tc)
			}
		}
		pending = make(map[int]*models.ToolCall)
		order = nil
		return out
	}

	for {
		select {
		case <-ctx.Done():
			chunks <- &Chunk{Err: ctx.Err()}
			chunks <- &Chunk{Done: true}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if calls := flush(); len(calls) > 0 {
					chunks <- &Chunk{ToolCalls: calls}
				}
				chunks <- &Chunk{Done: true, Usage: usage}
				return
			}
			chunks <- &Chunk{Err: err}
			chunks <- &Chunk{Done: true}
			return
		}

		if resp.Usage != nil {
			usage = &models.Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]

		if choice.Delta.Content != "" {
			chunks <- &Chunk{Content: choice.Delta.Content}
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			if pending[idx] == nil {
				pending[idx] = &models.ToolCall{}
				order = append(order, idx)
			}
			if tc.ID != "" {
				pending[idx].ID = tc.ID
			}
			if tc.Function.Name != "" {
				pending[idx].Function.Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				pending[idx].Function.Arguments += tc.Function.Arguments
			}
		}
		if choice.FinishReason == openai.FinishReasonToolCalls {
			if calls := flush(); len(calls) > 0 {
				chunks <- &Chunk{ToolCalls: calls}
			}
		}
	}
}

func toOpenAIMessages(msgs []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		msg := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
		if m.Role == "tool" {
			msg.ToolCallID = m.ToolCallID
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(ts []tools.Tool) []openai.Tool {
	out := make([]openai.Tool, len(ts))
	for i, t := range ts {
		var schema map[string]any
		if err := json.Unmarshal(t.Schema(), &schema); err != nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  schema,
			},
		}
	}
	return out
}
