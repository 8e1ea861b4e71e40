package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

const maxListEntries = 100

// skipDirs are nuisance directories omitted from listings, searches, and
// project trees.
var skipDirs = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true,
	".venv": true, "venv": true, "env": true, ".env": true,
	"dist": true, "build": true, "target": true, ".cache": true,
	".idea": true, ".vscode": true, "vendor": true, ".tox": true,
	".mypy_cache": true, ".pytest_cache": true, ".ruff_cache": true,
}

// ListTool renders a directory tree.
type ListTool struct{}

func NewListTool() *ListTool { return &ListTool{} }

func (t *ListTool) Name() string { return "list" }

func (t *ListTool) Description() string {
	return "List the file tree under a directory, skipping dependency and " +
		"cache directories. Capped at 100 entries."
}

func (t *ListTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to list (default workspace root).",
			},
		},
	})
}

func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	inv := InvocationFrom(ctx)
	dir := input.Path
	if dir == "" {
		dir = "."
	}
	root, err := inv.ResolvePath(dir)
	if err != nil {
		return ErrorResult("%v", err), nil
	}

	var b strings.Builder
	count := 0
	truncated := false
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() && skipDirs[name] {
			return filepath.SkipDir
		}
		if strings.HasPrefix(name, ".") && d.IsDir() {
			return filepath.SkipDir
		}
		if count >= maxListEntries {
			truncated = true
			return filepath.SkipAll
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		indent := strings.Repeat("  ", depth)
		if d.IsDir() {
			fmt.Fprintf(&b, "%s%s/\n", indent, name)
		} else {
			fmt.Fprintf(&b, "%s%s\n", indent, name)
		}
		count++
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return nil, err
	}

	output := strings.TrimRight(b.String(), "\n")
	if output == "" {
		output = "(empty directory)"
	}
	if truncated {
		output += fmt.Sprintf("\n... truncated at %d entries ...", maxListEntries)
	}
	return &Result{
		Title:    inv.DisplayPath(root),
		Output:   output,
		Metadata: map[string]any{"entries": count, "truncated": truncated},
	}, nil
}
