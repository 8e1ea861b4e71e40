package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TodoItem is one entry of a session's to-do list.
type TodoItem struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Status  string `json:"status"` // pending, in_progress, completed
}

// todoLists holds per-session to-do state for the lifetime of the process.
var todoLists = struct {
	mu    sync.Mutex
	items map[string][]TodoItem
}{items: make(map[string][]TodoItem)}

func renderTodos(items []TodoItem) string {
	if len(items) == 0 {
		return "no todos"
	}
	var b strings.Builder
	for _, item := range items {
		mark := " "
		switch item.Status {
		case "in_progress":
			mark = "~"
		case "completed":
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", mark, item.ID, item.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// TodoReadTool returns the current session's to-do list.
type TodoReadTool struct{}

func NewTodoReadTool() *TodoReadTool { return &TodoReadTool{} }

func (t *TodoReadTool) Name() string { return "todo_read" }

func (t *TodoReadTool) Description() string {
	return "Read the to-do list for the current session."
}

func (t *TodoReadTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{"type": "object", "properties": map[string]any{}})
}

func (t *TodoReadTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	inv := InvocationFrom(ctx)
	todoLists.mu.Lock()
	items := append([]TodoItem(nil), todoLists.items[inv.SessionID]...)
	todoLists.mu.Unlock()
	return &Result{
		Title:    "todos",
		Output:   renderTodos(items),
		Metadata: map[string]any{"count": len(items)},
	}, nil
}

// TodoWriteTool replaces the current session's to-do list.
type TodoWriteTool struct{}

func NewTodoWriteTool() *TodoWriteTool { return &TodoWriteTool{} }

func (t *TodoWriteTool) Name() string { return "todo_write" }

func (t *TodoWriteTool) Description() string {
	return "Replace the to-do list for the current session."
}

func (t *TodoWriteTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type":        "array",
				"description": "The full to-do list.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":      map[string]any{"type": "string"},
						"content": map[string]any{"type": "string"},
						"status": map[string]any{
							"type": "string",
							"enum": []string{"pending", "in_progress", "completed"},
						},
					},
					"required": []string{"id", "content", "status"},
				},
			},
		},
		"required": []string{"todos"},
	})
}

func (t *TodoWriteTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		Todos []TodoItem `json:"todos"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	inv := InvocationFrom(ctx)
	todoLists.mu.Lock()
	todoLists.items[inv.SessionID] = append([]TodoItem(nil), input.Todos...)
	todoLists.mu.Unlock()
	return &Result{
		Title:    "todos",
		Output:   renderTodos(input.Todos),
		Metadata: map[string]any{"count": len(input.Todos)},
	}, nil
}
