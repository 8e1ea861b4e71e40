package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/opencode/internal/auth"
	"github.com/haasonsaas/opencode/pkg/models"
)

const copilotBaseURL = "https://api.githubcopilot.com"

// copilotTokenSource yields short-lived Copilot API tokens.
// *auth.DeviceFlow implements it.
type copilotTokenSource interface {
	GetAccessToken(ctx context.Context, force bool) (string, error)
}

// CopilotProvider talks to the GitHub Copilot chat API. The API is
// OpenAI-compatible, so the OpenAI client is reused with a different base
// URL and a transport that injects the Copilot editor headers on every
// request.
type CopilotProvider struct {
	tokens  copilotTokenSource
	baseURL string
}

// NewCopilotProvider builds the provider on top of the device-flow token
// helper.
func NewCopilotProvider(tokens copilotTokenSource) *CopilotProvider {
	return &CopilotProvider{tokens: tokens, baseURL: copilotBaseURL}
}

func (p *CopilotProvider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		ID:           "github-copilot",
		Name:         "GitHub Copilot",
		Description:  "GitHub Copilot subscription models",
		RequiresAuth: true,
		AuthURL:      "https://github.com/login/device",
		Models: []models.ModelInfo{
			{ID: "gpt-4.1", Name: "GPT-4.1", ContextLength: 128000, SupportsTools: true, SupportsStreaming: true},
			{ID: "gpt-4o", Name: "GPT-4o", ContextLength: 128000, SupportsTools: true, SupportsStreaming: true},
			{ID: "o3-mini", Name: "o3-mini", ContextLength: 200000, SupportsTools: true, SupportsStreaming: true},
			{ID: "claude-sonnet-4", Name: "Claude Sonnet 4", ContextLength: 200000, SupportsTools: true, SupportsStreaming: true},
			{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", ContextLength: 128000, SupportsTools: true, SupportsStreaming: true},
		},
	}
}

// IsAuthenticated reports whether a Copilot token can be minted.
func (p *CopilotProvider) IsAuthenticated(ctx context.Context) bool {
	_, err := p.tokens.GetAccessToken(ctx, false)
	return err == nil
}

func (p *CopilotProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	client, err := p.clientFor(ctx, req.Initiator)
	if err != nil {
		return nil, err
	}
	oai := &OpenAIProvider{client: client}
	return oai.Chat(ctx, req)
}

func (p *CopilotProvider) ChatStream(ctx context.Context, req *ChatRequest) (<-chan *Chunk, error) {
	client, err := p.clientFor(ctx, req.Initiator)
	if err != nil {
		return nil, err
	}
	oai := &OpenAIProvider{client: client}
	return oai.ChatStream(ctx, req)
}

// clientFor builds an OpenAI client bound to the Copilot endpoint with the
// request's initiator baked into the header set.
func (p *CopilotProvider) clientFor(ctx context.Context, initiator string) (*openai.Client, error) {
	token, err := p.tokens.GetAccessToken(ctx, false)
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			return nil, errors.New("github-copilot: not authenticated; run `opencode auth login`")
		}
		return nil, err
	}
	if initiator == "" {
		initiator = InitiatorUser
	}
	cfg := openai.DefaultConfig(token)
	cfg.BaseURL = p.baseURL
	cfg.HTTPClient = &http.Client{
		Timeout: 120 * time.Second,
		Transport: &copilotTransport{
			token:     token,
			initiator: initiator,
			base:      http.DefaultTransport,
		},
	}
	return openai.NewClientWithConfig(cfg), nil
}

// copilotTransport adds the headers the Copilot backend requires on every
// request.
type copilotTransport struct {
	token     string
	initiator string
	base      http.RoundTripper
}

func (t *copilotTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	clone.Header.Set("User-Agent", "GitHubCopilotChat/0.26.7")
	clone.Header.Set("Editor-Version", "vscode/1.99.3")
	clone.Header.Set("Editor-Plugin-Version", "copilot-chat/0.26.7")
	clone.Header.Set("Copilot-Integration-Id", "vscode-chat")
	clone.Header.Set("Openai-Intent", "conversation-edits")
	clone.Header.Set("X-Initiator", t.initiator)
	return t.base.RoundTrip(clone)
}

// InitiatorFor derives the X-Initiator value from a message history:
// agent when any message came from the assistant or a tool, user only for
// a fresh conversation.
func InitiatorFor(msgs []ChatMessage) string {
	for _, m := range msgs {
		if m.Role == "assistant" || m.Role == "tool" {
			return InitiatorAgent
		}
	}
	return InitiatorUser
}
