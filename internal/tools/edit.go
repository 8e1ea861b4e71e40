package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// EditTool performs targeted string replacement in a file. When the target
// text does not match exactly (the model often mangles whitespace), three
// progressively looser strategies are tried: line-trimmed, whitespace-
// normalised, and indentation-flexible matching.
type EditTool struct{}

func NewEditTool() *EditTool { return &EditTool{} }

func (t *EditTool) Name() string { return "edit" }

func (t *EditTool) Description() string {
	return "Replace old_string with new_string in a file. The match must be " +
		"unique unless replace_all is set. An empty old_string creates a new " +
		"file containing new_string."
}

func (t *EditTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path of the file to edit.",
			},
			"old_string": map[string]any{
				"type":        "string",
				"description": "Text to replace. Empty to create a new file.",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "Replacement text.",
			},
			"replace_all": map[string]any{
				"type":        "boolean",
				"description": "Replace every occurrence instead of requiring a unique match.",
			},
		},
		"required": []string{"file_path", "old_string", "new_string"},
	})
}

func (t *EditTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		FilePath   string `json:"file_path"`
		OldString  string `json:"old_string"`
		NewString  string `json:"new_string"`
		ReplaceAll bool   `json:"replace_all"`
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

	if input.OldString == input.NewString {
		return ErrorResult("old_string and new_string are identical"), nil
	}

	// Empty old_string creates a new file.
	if input.OldString == "" {
		if _, err := os.Stat(path); err == nil {
			return ErrorResult("%s already exists; provide old_string to edit it", display), nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(input.NewString), 0o644); err != nil {
			return nil, err
		}
		return &Result{
			Title:  display,
			Output: fmt.Sprintf("created %s", display),
			Metadata: map[string]any{
				"action": "created",
				"diff":   unifiedDiff(display, "", input.NewString),
			},
		}, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ErrorResult("file not found: %s", display), nil
	}
	if err != nil {
		return nil, err
	}
	content := string(data)

	updated, count, matchErr := replaceWithStrategies(content, input.OldString, input.NewString, input.ReplaceAll)
	if matchErr != nil {
		return ErrorResult("%s: %v", display, matchErr), nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return nil, err
	}
	diff := unifiedDiff(display, content, updated)
	return &Result{
		Title:  display,
		Output: fmt.Sprintf("edited %s (%d replacement(s))\n\n%s", display, count, diff),
		Metadata: map[string]any{
			"action":       "edited",
			"replacements": count,
			"diff":         diff,
		},
	}, nil
}

// replaceWithStrategies applies the first matching strategy. The file is
// never modified on failure.
func replaceWithStrategies(content, old, repl string, replaceAll bool) (string, int, error) {
	strategies := []func(string, string) []span{
		matchExact,
		matchLineTrimmed,
		matchWhitespaceNormalized,
		matchIndentFlexible,
	}
	for _, strategy := range strategies {
		spans := strategy(content, old)
		if len(spans) == 0 {
			continue
		}
		if !replaceAll && len(spans) > 1 {
			return "", 0, fmt.Errorf("old_string matches %d locations; provide more context or set replace_all", len(spans))
		}
		if !replaceAll {
			spans = spans[:1]
		}
		var b strings.Builder
		prev := 0
		for _, sp := range spans {
			b.WriteString(content[prev:sp.start])
			b.WriteString(repl)
			prev = sp.end
		}
		b.WriteString(content[prev:])
		return b.String(), len(spans), nil
	}
	return "", 0, fmt.Errorf("old_string not found in file")
}

// span is a half-open byte range within the file content.
type span struct{ start, end int }

func matchExact(content, old string) []span {
	var spans []span
	for idx, off := 0, 0; ; {
		idx = strings.Index(content[off:], old)
		if idx < 0 {
			break
		}
		start := off + idx
		spans = append(spans, span{start, start + len(old)})
		off = start + len(old)
	}
	return spans
}

// lineSpans returns each line of content with its byte range (newline
// excluded).
func lineSpans(content string) ([]string, []span) {
	var lines []string
	var spans []span
	start := 0
	for i := 0; i <= len(content); i++ {
		if i == len(content) || content[i] == '\n' {
			lines = append(lines, content[start:i])
			spans = append(spans, span{start, i})
			start = i + 1
		}
	}
	return lines, spans
}

// windowMatch finds windows of len(oldLines) consecutive lines satisfying
// eq and returns their byte ranges. Matches do not overlap.
func windowMatch(content, old string, eq func(window, old []string) bool) []span {
	oldLines := splitLines(old)
	if len(oldLines) == 0 {
		return nil
	}
	lines, spans := lineSpans(content)
	var out []span
	for i := 0; i+len(oldLines) <= len(lines); i++ {
		if eq(lines[i:i+len(oldLines)], oldLines) {
			out = append(out, span{spans[i].start, spans[i+len(oldLines)-1].end})
			i += len(oldLines) - 1
		}
	}
	return out
}

func matchLineTrimmed(content, old string) []span {
	return windowMatch(content, old, func(window, oldLines []string) bool {
		for i := range window {
			if strings.TrimSpace(window[i]) != strings.TrimSpace(oldLines[i]) {
				return false
			}
		}
		return true
	})
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func matchWhitespaceNormalized(content, old string) []span {
	target := normalizeWhitespace(old)
	if target == "" {
		return nil
	}
	return windowMatch(content, old, func(window, _ []string) bool {
		return normalizeWhitespace(strings.Join(window, "\n")) == target
	})
}

// stripCommonIndent removes the longest common leading whitespace shared by
// all non-blank lines.
func stripCommonIndent(lines []string) []string {
	common := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			common = indent
			first = false
			continue
		}
		for !strings.HasPrefix(indent, common) {
			common = common[:len(common)-1]
		}
	}
	if common == "" {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimPrefix(line, common)
	}
	return out
}

func matchIndentFlexible(content, old string) []span {
	oldStripped := stripCommonIndent(splitLines(old))
	return windowMatch(content, old, func(window, _ []string) bool {
		stripped := stripCommonIndent(append([]string(nil), window...))
		if len(stripped) != len(oldStripped) {
			return false
		}
		for i := range stripped {
			if stripped[i] != oldStripped[i] {
				return false
			}
		}
		return true
	})
}
