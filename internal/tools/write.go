package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteTool creates or overwrites a file.
type WriteTool struct{}

func NewWriteTool() *WriteTool { return &WriteTool{} }

func (t *WriteTool) Name() string { return "write" }

func (t *WriteTool) Description() string {
	return "Write content to a file, creating it (and any missing parent " +
		"directories) or overwriting it."
}

func (t *WriteTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to write.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full content to write.",
			},
		},
		"required": []string{"file_path", "content"},
	})
}

func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	inv := InvocationFrom(ctx)
	path, err := inv.ResolvePath(input.FilePath)
	if err != nil {
		return ErrorResult("%v", err), nil
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(path, []byte(input.Content), 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	action := "created"
	if existed {
		action = "updated"
	}
	lineCount := strings.Count(input.Content, "\n")
	if input.Content != "" && !strings.HasSuffix(input.Content, "\n") {
		lineCount++
	}
	return &Result{
		Title:  inv.DisplayPath(path),
		Output: fmt.Sprintf("%s %s (%d bytes, %d lines)", action, inv.DisplayPath(path), len(input.Content), lineCount),
		Metadata: map[string]any{
			"action": action,
			"bytes":  len(input.Content),
			"lines":  lineCount,
		},
	}, nil
}
