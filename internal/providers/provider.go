// Package providers abstracts the LLM backends the agent can talk to:
// OpenAI, Anthropic, and GitHub Copilot. All providers speak a common
// request/chunk vocabulary; streaming backends additionally implement
// StreamingProvider.
package providers

import (
	"context"

	"github.com/haasonsaas/opencode/internal/tools"
	"github.com/haasonsaas/opencode/pkg/models"
)

// ChatMessage is one entry of a provider conversation.
type ChatMessage struct {
	// Role is system, user, assistant, or tool.
	Role string
	// Content is the message text.
	Content string
	// ToolCalls carries the calls an assistant message requested.
	ToolCalls []models.ToolCall
	// ToolCallID links a tool-role message to the call it answers.
	ToolCallID string
}

// Initiator values for the Copilot X-Initiator header.
const (
	InitiatorUser  = "user"
	InitiatorAgent = "agent"
)

// ChatRequest is a single model invocation.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Tools       []tools.Tool
	MaxTokens   int
	Temperature *float64
	// Initiator tags who triggered this call: a human turn or an agent
	// follow-up after tool execution. Only Copilot uses it.
	Initiator string
}

// ChatResponse is a complete non-streaming result.
type ChatResponse struct {
	Content   string
	ToolCalls []models.ToolCall
	Usage     models.Usage
}

// Chunk is one element of a streaming response. Exactly one terminal chunk
// is delivered per stream: Done=true on success (optionally carrying
// Usage), or Err set on failure.
type Chunk struct {
	Content   string
	ToolCalls []models.ToolCall
	Usage     *models.Usage
	Done      bool
	Err       error
}

// Provider is a chat backend.
type Provider interface {
	// Info describes the provider and its models.
	Info() models.ProviderInfo

	// IsAuthenticated probes whether the provider has working credentials.
	IsAuthenticated(ctx context.Context) bool

	// Chat performs a blocking, non-streaming completion.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// StreamingProvider is implemented by providers that can deliver
// incremental chunks. The returned channel is closed after the terminal
// chunk.
type StreamingProvider interface {
	Provider
	ChatStream(ctx context.Context, req *ChatRequest) (<-chan *Chunk, error)
}
