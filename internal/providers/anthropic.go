package providers

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/haasonsaas/opencode/internal/auth"
	"github.com/haasonsaas/opencode/pkg/models"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicProvider talks to the Anthropic Messages API.
//
// Differences from the OpenAI-shaped providers: the system prompt is a
// top-level request field rather than a message, and tool invocations
// arrive as tool_use content blocks whose JSON input streams in fragments.
type AnthropicProvider struct {
	client *anthropic.Client
}

// NewAnthropicProvider builds the provider. The key comes from the
// credential store when present, else ANTHROPIC_API_KEY.
func NewAnthropicProvider(store *auth.Store) *AnthropicProvider {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if store != nil {
		if cred, ok, _ := store.Get("anthropic"); ok && cred.Type == auth.CredentialAPIKey && cred.Key != "" {
			key = cred.Key
		}
	}
	if key == "" {
		return &AnthropicProvider{}
	}
	client := anthropic.NewClient(option.WithAPIKey(key))
	return &AnthropicProvider{client: &client}
}

func (p *AnthropicProvider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		ID:           "anthropic",
		Name:         "Anthropic",
		Description:  "Anthropic Claude models",
		RequiresAuth: true,
		Models: []models.ModelInfo{
			{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextLength: 200000, SupportsTools: true, SupportsStreaming: true, CostPerInputTok: 3e-06, CostPerOutputTok: 1.5e-05},
			{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextLength: 200000, SupportsTools: true, SupportsStreaming: true, CostPerInputTok: 1.5e-05, CostPerOutputTok: 7.5e-05},
			{ID: "claude-3-5-haiku-latest", Name: "Claude 3.5 Haiku", ContextLength: 200000, SupportsTools: true, SupportsStreaming: true, CostPerInputTok: 8e-07, CostPerOutputTok: 4e-06},
		},
	}
}

// IsAuthenticated probes the API with a one-token message.
func (p *AnthropicProvider) IsAuthenticated(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     "claude-3-5-haiku-latest",
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("hi")),
		},
	})
	return err == nil
}

func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.client == nil {
		return nil, errors.New("anthropic: API key not configured")
	}
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}
	out := &ChatResponse{
		Usage: models.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			tu := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID: tu.ID,
				Function: models.FunctionCall{
					Name:      tu.Name,
					Arguments: string(tu.Input),
				},
			})
		}
	}
	out.Content = text.String()
	return out, nil
}

func (p *AnthropicProvider) ChatStream(ctx context.Context, req *ChatRequest) (<-chan *Chunk, error) {
	if p.client == nil {
		return nil, errors.New("anthropic: API key not configured")
	}
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}
	stream := p.client.Messages.NewStreaming(ctx, params)
	chunks := make(chan *Chunk)
	go processAnthropicStream(stream, chunks)
	return chunks, nil
}

func (p *AnthropicProvider) buildParams(req *ChatRequest) (anthropic.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	// System messages become the top-level system field.
	for _, m := range req.Messages {
		if m.Role == "system" && m.Content != "" {
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		}
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "user":
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			var content []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				content = append(content, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
					input = map[string]any{}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
			}
			if len(content) > 0 {
				params.Messages = append(params.Messages, anthropic.NewAssistantMessage(content...))
			}
		case "tool":
			// Tool results ride in user messages.
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}

	for _, t := range req.Tools {
		var schema struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		if err := json.Unmarshal(t.Schema(), &schema); err != nil {
			return params, err
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name(),
				Description: anthropic.String(t.Description()),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema.Properties,
					Required:   schema.Required,
				},
			},
		})
	}
	return params, nil
}

func processAnthropicStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- *Chunk) {
	defer close(chunks)

	var currentTool *models.ToolCall
	var toolInput strings.Builder
	var usage models.Usage

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			start := event.AsMessageStart()
			usage.PromptTokens = int(start.Message.Usage.InputTokens)

		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				tu := block.AsToolUse()
				currentTool = &models.ToolCall{
					ID:       tu.ID,
					Function: models.FunctionCall{Name: tu.Name},
				}
				toolInput.Reset()
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					chunks <- &Chunk{Content: delta.Text}
				}
			case "input_json_delta":
				toolInput.WriteString(delta.PartialJSON)
			}

		case "content_block_stop":
			if currentTool != nil {
				args := toolInput.String()
				if args == "" {
					args = "{}"
				}
				currentTool.Function.Arguments = args
				chunks <- &Chunk{ToolCalls: []models.ToolCall{*currentTool}}
				currentTool = nil
			}

		case "message_delta":
			delta := event.AsMessageDelta()
			if delta.Usage.OutputTokens > 0 {
				usage.CompletionTokens = int(delta.Usage.OutputTokens)
			}

		case "message_stop":
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			chunks <- &Chunk{Done: true, Usage: &usage}
			return
		}
	}
	if err := stream.Err(); err != nil {
		chunks <- &Chunk{Err: err}
		chunks <- &Chunk{Done: true}
		return
	}
	// Stream ended without message_stop.
	chunks <- &Chunk{Done: true}
}
