package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const maxGlobResults = 100

// GlobTool enumerates files matching a glob pattern, newest first.
type GlobTool struct{}

func NewGlobTool() *GlobTool { return &GlobTool{} }

func (t *GlobTool) Name() string { return "glob" }

func (t *GlobTool) Description() string {
	return "Find files matching a glob pattern (** is supported). Results are " +
		"sorted by modification time, newest first, capped at 100."
}

func (t *GlobTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern, e.g. **/*.go or src/*.ts.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to search from (default workspace root).",
			},
		},
		"required": []string{"pattern"},
	})
}

func (t *GlobTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	inv := InvocationFrom(ctx)
	searchPath := input.Path
	if searchPath == "" {
		searchPath = "."
	}
	root, err := inv.ResolvePath(searchPath)
	if err != nil {
		return ErrorResult("%v", err), nil
	}

	type entry struct {
		path  string
		mtime time.Time
	}
	var entries []entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !globMatch(input.Pattern, rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, entry{path, info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].mtime.After(entries[j].mtime) })
	truncated := len(entries) > maxGlobResults
	if truncated {
		entries = entries[:maxGlobResults]
	}

	if len(entries) == 0 {
		return &Result{
			Title:    input.Pattern,
			Output:   "no files matched",
			Metadata: map[string]any{"count": 0},
		}, nil
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(inv.DisplayPath(e.path) + "\n")
	}
	output := strings.TrimRight(b.String(), "\n")
	if truncated {
		output += fmt.Sprintf("\n... truncated at %d results ...", maxGlobResults)
	}
	return &Result{
		Title:    input.Pattern,
		Output:   output,
		Metadata: map[string]any{"count": len(entries), "truncated": truncated},
	}, nil
}

// globMatch extends path.Match with ** support: a ** segment matches any
// number of path segments, including none.
func globMatch(pattern, name string) bool {
	patSegs := strings.Split(filepath.ToSlash(pattern), "/")
	nameSegs := strings.Split(filepath.ToSlash(name), "/")
	return segsMatch(patSegs, nameSegs)
}

func segsMatch(pat, segs []string) bool {
	if len(pat) == 0 {
		return len(segs) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(segs); i++ {
			if segsMatch(pat[1:], segs[i:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	ok, err := filepath.Match(pat[0], segs[0])
	if err != nil || !ok {
		return false
	}
	return segsMatch(pat[1:], segs[1:])
}
