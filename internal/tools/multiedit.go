package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// MultiEditTool applies a sequence of edits to one file. Edits run in
// order, each seeing the output of the previous; a failing edit stops the
// sequence but earlier edits stay applied.
type MultiEditTool struct{}

func NewMultiEditTool() *MultiEditTool { return &MultiEditTool{} }

func (t *MultiEditTool) Name() string { return "multiedit" }

func (t *MultiEditTool) Description() string {
	return "Apply several edit operations to one file in sequence. Each edit " +
		"sees the result of the previous one."
}

func (t *MultiEditTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to edit.",
			},
			"edits": map[string]any{
				"type":        "array",
				"description": "Edits to apply in order.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"old_string":  map[string]any{"type": "string"},
						"new_string":  map[string]any{"type": "string"},
						"replace_all": map[string]any{"type": "boolean"},
					},
					"required": []string{"old_string", "new_string"},
				},
				"minItems": 1,
			},
		},
		"required": []string{"file_path", "edits"},
	})
}

func (t *MultiEditTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		FilePath string `json:"file_path"`
		Edits    []struct {
			OldString  string `json:"old_string"`
			NewString  string `json:"new_string"`
			ReplaceAll bool   `json:"replace_all"`
		} `json:"edits"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	inv := InvocationFrom(ctx)
	path, err := inv.ResolvePath(input.FilePath)
	if err != nil {
		return ErrorResult("%v", err), nil
	}
	display := inv.DisplayPath(path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ErrorResult("file not found: %s", display), nil
	}
	if err != nil {
		return nil, err
	}
	original := string(data)
	content := original

	applied := 0
	var failure string
	for i, e := range input.Edits {
		if e.OldString == e.NewString {
			failure = fmt.Sprintf("edit %d: old_string and new_string are identical", i+1)
			break
		}
		updated, _, matchErr := replaceWithStrategies(content, e.OldString, e.NewString, e.ReplaceAll)
		if matchErr != nil {
			failure = fmt.Sprintf("edit %d: %v", i+1, matchErr)
			break
		}
		content = updated
		applied++
	}

	if applied > 0 && content != original {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}

	diff := unifiedDiff(display, original, content)
	meta := map[string]any{
		"applied": applied,
		"total":   len(input.Edits),
		"diff":    diff,
	}
	if failure != "" {
		meta["error"] = failure
		var b strings.Builder
		fmt.Fprintf(&b, "applied %d of %d edits to %s; stopped: %s", applied, len(input.Edits), display, failure)
		if diff != "" {
			b.WriteString("\n\n" + diff)
		}
		return &Result{Title: display, Output: b.String(), Metadata: meta, IsError: true}, nil
	}
	return &Result{
		Title:    display,
		Output:   fmt.Sprintf("applied %d edit(s) to %s\n\n%s", applied, display, diff),
		Metadata: meta,
	}, nil
}
