package tools

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/opencode/internal/lsp"
)

// LSPDiagnosticsTool reports cached language-server diagnostics.
type LSPDiagnosticsTool struct {
	client *lsp.Client
}

func NewLSPDiagnosticsTool(client *lsp.Client) *LSPDiagnosticsTool {
	return &LSPDiagnosticsTool{client: client}
}

func (t *LSPDiagnosticsTool) Name() string { return "lsp_diagnostics" }

func (t *LSPDiagnosticsTool) Description() string {
	return "Show language-server diagnostics, optionally filtered to one file."
}

func (t *LSPDiagnosticsTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Restrict output to this file.",
			},
		},
	})
}

func (t *LSPDiagnosticsTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	var output string
	if input.FilePath != "" {
		inv := InvocationFrom(ctx)
		path, err := inv.ResolvePath(input.FilePath)
		if err != nil {
			return ErrorResult("%v", err), nil
		}
		output = t.client.FormatAll(path)
	} else {
		output = t.client.FormatAll()
	}
	if output == "" {
		output = "no diagnostics"
	}
	return &Result{Title: "diagnostics", Output: output}, nil
}

// LSPHoverTool reports cached hover information at a position.
type LSPHoverTool struct {
	client *lsp.Client
}

func NewLSPHoverTool(client *lsp.Client) *LSPHoverTool {
	return &LSPHoverTool{client: client}
}

func (t *LSPHoverTool) Name() string { return "lsp_hover" }

func (t *LSPHoverTool) Description() string {
	return "Show hover information (type signatures, documentation) at a file position."
}

func (t *LSPHoverTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "File to inspect.",
			},
			"line": map[string]any{
				"type":        "integer",
				"description": "1-based line number.",
			},
			"column": map[string]any{
				"type":        "integer",
				"description": "1-based column number.",
			},
		},
		"required": []string{"file_path", "line", "column"},
	})
}

func (t *LSPHoverTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		FilePath string `json:"file_path"`
		Line     int    `json:"line"`
		Column   int    `json:"column"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	inv := InvocationFrom(ctx)
	path, err := inv.ResolvePath(input.FilePath)
	if err != nil {
		return ErrorResult("%v", err), nil
	}
	text := t.client.Hover(path, input.Line, input.Column)
	if text == "" {
		text = "no hover information available"
	}
	return &Result{Title: "hover", Output: text}, nil
}
