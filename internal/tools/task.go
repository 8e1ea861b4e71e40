package tools

import (
	"context"
	"encoding/json"
)

// TaskTool is a placeholder for sub-agent delegation.
// TODO: wire to a real sub-agent runner once the orchestrator supports
// nested sessions.
type TaskTool struct{}

func NewTaskTool() *TaskTool { return &TaskTool{} }

func (t *TaskTool) Name() string { return "task" }

func (t *TaskTool) Description() string {
	return "Delegate a task to a sub-agent. Not yet implemented."
}

func (t *TaskTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{
				"type":        "string",
				"description": "What the sub-agent should do.",
			},
		},
		"required": []string{"description"},
	})
}

func (t *TaskTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	return &Result{
		Title:  "task",
		Output: "sub-agent delegation is not available yet; perform the task directly: " + input.Description,
	}, nil
}
