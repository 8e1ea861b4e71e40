package tools

import "github.com/haasonsaas/opencode/internal/lsp"

// NewDefaultRegistry registers the full built-in tool set.
func NewDefaultRegistry(lspClient *lsp.Client) (*Registry, error) {
	r := NewRegistry()
	builtins := []Tool{
		NewBashTool(),
		NewReadTool(),
		NewWriteTool(),
		NewEditTool(),
		NewMultiEditTool(),
		NewPatchTool(),
		NewGrepTool(),
		NewGlobTool(),
		NewListTool(),
		NewWebFetchTool(),
		NewLSPDiagnosticsTool(lspClient),
		NewLSPHoverTool(lspClient),
		NewTaskTool(),
		NewTodoReadTool(),
		NewTodoWriteTool(),
	}
	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
