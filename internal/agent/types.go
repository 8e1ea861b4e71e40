package agent

import (
	"encoding/json"

	"github.com/haasonsaas/opencode/pkg/models"
)

// ChunkKind selects which fields of a Chunk are meaningful.
type ChunkKind string

const (
	// ChunkContent carries a text delta from the model.
	ChunkContent ChunkKind = "content"
	// ChunkStatus carries a short progress note (e.g. "thinking").
	ChunkStatus ChunkKind = "status"
	// ChunkToolStart announces a tool is about to run.
	ChunkToolStart ChunkKind = "tool_start"
	// ChunkToolResult carries a successful tool output.
	ChunkToolResult ChunkKind = "tool_result"
	// ChunkToolError carries a failed tool output.
	ChunkToolError ChunkKind = "tool_error"
	// ChunkError reports a turn-level failure; a ChunkDone follows.
	ChunkError ChunkKind = "error"
	// ChunkDone terminates the stream. Exactly one is sent per turn.
	ChunkDone ChunkKind = "done"
)

// Chunk is one event of a chat turn's output stream.
type Chunk struct {
	Kind ChunkKind `json:"kind"`

	// Content for ChunkContent, Status for ChunkStatus, Error for
	// ChunkError.
	Content string `json:"content,omitempty"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`

	// Tool fields for the tool_* kinds.
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolArgs   json.RawMessage `json:"tool_args,omitempty"`
	Output     string          `json:"output,omitempty"`

	// Usage rides on ChunkDone when the provider reported it.
	Usage *models.Usage `json:"usage,omitempty"`
}

// ChatRequest starts one conversational turn.
type ChatRequest struct {
	SessionID  string
	ProviderID string
	ModelID    string
	Mode       string
	Text       string
}
