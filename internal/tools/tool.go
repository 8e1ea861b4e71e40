// Package tools defines the tool abstraction the agent exposes to models
// and the built-in tool set: shell execution, file inspection and editing,
// search, web fetch, and language-server queries.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Tool is a capability exposed to the model via function calling.
//
// Name must be a stable identifier valid as a function name. Schema returns
// the JSON Schema for the tool's parameters; the model constructs arguments
// against it and the registry validates them before Execute runs.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Result is the outcome of one tool execution. Errors meant for the model
// are communicated via IsError with a descriptive Output, letting the model
// recover; Go errors from Execute signal the same and are normalised by the
// registry.
type Result struct {
	Title    string         `json:"title,omitempty"`
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
	IsError  bool           `json:"is_error,omitempty"`
}

// ErrorResult builds an error-shaped result.
func ErrorResult(format string, args ...any) *Result {
	msg := fmt.Sprintf(format, args...)
	return &Result{
		Output:   msg,
		Metadata: map[string]any{"error": msg},
		IsError:  true,
	}
}

// Invocation carries the per-call state a tool may need beyond its
// arguments: which session and message it runs for, the workspace root for
// resolving relative paths, and an optional callback for incremental
// metadata updates.
type Invocation struct {
	SessionID     string
	MessageID     string
	WorkspaceRoot string
	OnMetadata    func(title string, metadata map[string]any)
}

type invocationKey struct{}

// WithInvocation attaches inv to ctx for the duration of a tool call.
func WithInvocation(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFrom returns the invocation attached to ctx, or an empty one
// rooted at the current directory.
func InvocationFrom(ctx context.Context) *Invocation {
	if inv, ok := ctx.Value(invocationKey{}).(*Invocation); ok && inv != nil {
		return inv
	}
	return &Invocation{WorkspaceRoot: "."}
}

// Notify forwards an incremental metadata update when a callback is set.
func (inv *Invocation) Notify(title string, metadata map[string]any) {
	if inv.OnMetadata != nil {
		inv.OnMetadata(title, metadata)
	}
}

// ResolvePath resolves a tool-supplied path. Relative paths are resolved
// against the workspace root and must not escape it; absolute paths are
// honoured as given.
func (inv *Invocation) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	root := inv.WorkspaceRoot
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	resolved := filepath.Clean(filepath.Join(absRoot, path))
	if resolved != absRoot && !strings.HasPrefix(resolved, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace root", path)
	}
	return resolved, nil
}

// DisplayPath renders an absolute path workspace-relative when possible,
// for reporting back to the model.
func (inv *Invocation) DisplayPath(abs string) string {
	root := inv.WorkspaceRoot
	if root == "" {
		return abs
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}

// mustSchema marshals a schema literal, falling back to a permissive object
// schema on failure.
func mustSchema(schema map[string]any) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}
