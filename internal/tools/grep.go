package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	maxGrepFileSize = 1 << 20 // 1 MiB
	maxGrepResults  = 1000
)

// GrepTool searches file contents by regex or literal string.
type GrepTool struct{}

func NewGrepTool() *GrepTool { return &GrepTool{} }

func (t *GrepTool) Name() string { return "grep" }

func (t *GrepTool) Description() string {
	return "Search file contents for a pattern. Supports regex or literal " +
		"matching, case sensitivity, context lines, and a result cap. Binary " +
		"files and files over 1 MiB are skipped."
}

func (t *GrepTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Pattern to search for.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "File or directory to search (default workspace root).",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Recurse into subdirectories (default true).",
			},
			"case_sensitive": map[string]any{
				"type":        "boolean",
				"description": "Match case exactly (default false).",
			},
			"literal": map[string]any{
				"type":        "boolean",
				"description": "Treat the pattern as a literal string instead of a regex.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of matches (default 100, max 1000).",
			},
			"context": map[string]any{
				"type":        "integer",
				"description": "Lines of context around each match (0-10).",
			},
		},
		"required": []string{"pattern"},
	})
}

func (t *GrepTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		Pattern       string `json:"pattern"`
		Path          string `json:"path"`
		Recursive     *bool  `json:"recursive"`
		CaseSensitive bool   `json:"case_sensitive"`
		Literal       bool   `json:"literal"`
		MaxResults    int    `json:"max_results"`
		Context       int    `json:"context"`
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

	pattern := input.Pattern
	if input.Literal {
		pattern = regexp.QuoteMeta(pattern)
	}
	if !input.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ErrorResult("invalid pattern: %v", err), nil
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}
	if maxResults > maxGrepResults {
		maxResults = maxGrepResults
	}
	contextLines := input.Context
	if contextLines < 0 {
		contextLines = 0
	}
	if contextLines > 10 {
		contextLines = 10
	}
	recursive := input.Recursive == nil || *input.Recursive

	type match struct {
		line int
		text string
	}
	results := make(map[string][]match)
	total := 0

	searchFile := func(path string) error {
		info, err := os.Stat(path)
		if err != nil || info.Size() > maxGrepFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || bytes.IndexByte(data, 0) >= 0 {
			return nil
		}
		display := inv.DisplayPath(path)
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), maxGrepFileSize)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		for i, line := range lines {
			if total >= maxResults {
				return filepath.SkipAll
			}
			if !re.MatchString(line) {
				continue
			}
			start := i - contextLines
			if start < 0 {
				start = 0
			}
			end := i + contextLines
			if end >= len(lines) {
				end = len(lines) - 1
			}
			for j := start; j <= end; j++ {
				marker := ":"
				if j != i {
					marker = "-"
				}
				results[display] = append(results[display], match{j + 1, marker + " " + lines[j]})
			}
			total++
		}
		return nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return ErrorResult("cannot access %s: %v", inv.DisplayPath(root), err), nil
	}
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				if !recursive && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			return searchFile(path)
		})
		if err != nil && err != filepath.SkipAll {
			return nil, err
		}
	} else if err := searchFile(root); err != nil && err != filepath.SkipAll {
		return nil, err
	}

	if total == 0 {
		return &Result{
			Title:    input.Pattern,
			Output:   "no matches found",
			Metadata: map[string]any{"matches": 0},
		}, nil
	}

	files := make([]string, 0, len(results))
	for f := range results {
		files = append(files, f)
	}
	sort.Strings(files)

	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s:\n", f)
		for _, m := range results[f] {
			fmt.Fprintf(&b, "  %d%s\n", m.line, m.text)
		}
	}
	output := strings.TrimRight(b.String(), "\n")
	if total >= maxResults {
		output += fmt.Sprintf("\n... capped at %d matches ...", maxResults)
	}
	return &Result{
		Title:    input.Pattern,
		Output:   output,
		Metadata: map[string]any{"matches": total, "files": len(files)},
	}, nil
}
