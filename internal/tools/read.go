package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxReadBytes     = 250 * 1024
	defaultReadLines = 2000
	maxLineWidth     = 2000
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".webp": true, ".ico": true, ".svg": true,
}

// ReadTool returns file contents with line numbers, windowed by
// offset/limit.
type ReadTool struct{}

func NewReadTool() *ReadTool { return &ReadTool{} }

func (t *ReadTool) Name() string { return "read" }

func (t *ReadTool) Description() string {
	return "Read a file from the workspace. Returns up to 2000 lines by default; " +
		"use offset and limit to read other windows. Lines longer than 2000 " +
		"characters are truncated."
}

func (t *ReadTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to read.",
			},
			"offset": map[string]any{
				"type":        "integer",
				"description": "Number of lines to skip before reading (0-based).",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of lines to return (default 2000).",
			},
		},
		"required": []string{"file_path"},
	})
}

func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		FilePath string `json:"file_path"`
		Offset   int    `json:"offset"`
		Limit    int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	inv := InvocationFrom(ctx)
	path, err := inv.ResolvePath(input.FilePath)
	if err != nil {
		return ErrorResult("%v", err), nil
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		msg := fmt.Sprintf("file not found: %s", inv.DisplayPath(path))
		if suggestions := similarFiles(path); len(suggestions) > 0 {
			msg += "\n\nDid you mean one of these?\n  " + strings.Join(suggestions, "\n  ")
		}
		return ErrorResult("%s", msg), nil
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ErrorResult("%s is a directory, not a file", inv.DisplayPath(path)), nil
	}
	if info.Size() > maxReadBytes {
		return ErrorResult("file is too large (%d bytes, limit %d); use offset/limit or another tool",
			info.Size(), maxReadBytes), nil
	}
	if imageExtensions[strings.ToLower(filepath.Ext(path))] {
		return ErrorResult("cannot read image file: %s", inv.DisplayPath(path)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")

	// offset counts skipped lines; the window is lines offset+1..offset+limit
	// in the file's 1-based numbering.
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultReadLines
	}
	if offset >= len(lines) {
		return ErrorResult("offset %d is past the end of the file (%d lines)", offset, len(lines)), nil
	}
	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}
	window := lines[offset:end]

	var b strings.Builder
	b.WriteString("<file>\n")
	for i, line := range window {
		if len(line) > maxLineWidth {
			line = line[:maxLineWidth] + "..."
		}
		fmt.Fprintf(&b, "%5d| %s\n", offset+i+1, line)
	}
	if end < len(lines) {
		fmt.Fprintf(&b, "... %d more lines ...\n", len(lines)-end)
	}
	b.WriteString("</file>")

	return &Result{
		Title:  inv.DisplayPath(path),
		Output: b.String(),
		Metadata: map[string]any{
			"lines_total": len(lines),
			"lines_shown": len(window),
		},
	}, nil
}

// similarFiles suggests up to three entries from the missing file's parent
// directory whose names share a case-insensitive substring with the target.
func similarFiles(path string) []string {
	dir := filepath.Dir(path)
	target := strings.ToLower(filepath.Base(path))
	base := strings.TrimSuffix(target, filepath.Ext(target))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if strings.Contains(name, base) || strings.Contains(base, strings.TrimSuffix(name, filepath.Ext(name))) {
			out = append(out, filepath.Join(dir, e.Name()))
			if len(out) == 3 {
				break
			}
		}
	}
	return out
}
