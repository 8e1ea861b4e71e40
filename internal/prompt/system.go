// Package prompt assembles the system messages sent at the start of every
// model turn: a model-family preamble, an environment block, custom
// instruction files, and the active mode's prompt.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/opencode/internal/config"
	"github.com/haasonsaas/opencode/internal/workspace"
)

var (
	//go:embed prompts/beast.txt
	beastPrompt string
	//go:embed prompts/gemini.txt
	geminiPrompt string
	//go:embed prompts/anthropic.txt
	anthropicPrompt string
	//go:embed prompts/anthropic_spoof.txt
	spoofPrompt string
	//go:embed prompts/summarize.txt
	summarizePrompt string
	//go:embed prompts/title.txt
	titlePrompt string
)

// Preamble picks the model-family system prompt from the model id.
func Preamble(modelID string) string {
	switch {
	case strings.Contains(modelID, "gpt-"),
		strings.Contains(modelID, "o1"),
		strings.Contains(modelID, "o3"):
		return strings.TrimSpace(beastPrompt)
	case strings.Contains(modelID, "gemini-"):
		return strings.TrimSpace(geminiPrompt)
	default:
		return strings.TrimSpace(anthropicPrompt)
	}
}

const (
	treeMaxDepth = 3
	treeMaxLines = 200
)

// nuisanceDirs are skipped when rendering the project tree.
var nuisanceDirs = map[string]bool{
	"node_modules": true, "__pycache__": true, ".git": true,
	"dist": true, "build": true, "target": true, "vendor": true,
	".venv": true, "venv": true, ".cache": true,
}

// Environment renders the environment block for a workspace.
func Environment(ws *workspace.Info) string {
	git := "no"
	if ws.Git {
		git = "yes"
	}
	var b strings.Builder
	b.WriteString("Here is some useful information about the environment you are running in:\n")
	b.WriteString("<env>\n")
	fmt.Fprintf(&b, "  Working directory: %s\n", ws.Cwd)
	fmt.Fprintf(&b, "  Is directory a git repo: %s\n", git)
	fmt.Fprintf(&b, "  Platform: %s\n", runtime.GOOS)
	fmt.Fprintf(&b, "  Today's date: %s\n", time.Now().Format("Monday, January 2, 2006"))
	b.WriteString("</env>\n")
	b.WriteString("<project>\n")
	b.WriteString(projectTree(ws.Cwd))
	b.WriteString("\n</project>")
	return b.String()
}

// projectTree renders a depth-capped listing of the workspace.
func projectTree(root string) string {
	var lines []string
	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		if depth > treeMaxDepth || len(lines) >= treeMaxLines {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if len(lines) >= treeMaxLines {
				return
			}
			name := e.Name()
			if strings.HasPrefix(name, ".") || nuisanceDirs[name] {
				continue
			}
			rel, err := filepath.Rel(root, filepath.Join(dir, name))
			if err != nil {
				continue
			}
			if e.IsDir() {
				lines = append(lines, rel+"/")
				walk(filepath.Join(dir, name), depth+1)
			} else {
				lines = append(lines, rel)
			}
		}
	}
	walk(root, 0)
	return strings.Join(lines, "\n")
}

// instructionFiles are picked up from the workspace, walking up from cwd.
var instructionFiles = []string{"AGENTS.md", "CLAUDE.md", "CONTEXT.md"}

// Custom collects custom instruction sources: project instruction files,
// the global AGENTS.md under the config dir, ~/.claude/CLAUDE.md, and any
// explicit paths from config. Each non-empty file is one entry.
func Custom(ws *workspace.Info, cfg *config.Config) []string {
	var found []string
	for _, name := range instructionFiles {
		if path := workspace.FindUp(name, ws.Cwd); path != "" {
			if content := readTrimmed(path); content != "" {
				found = append(found, content)
			}
		}
	}
	if content := readTrimmed(filepath.Join(config.ConfigDir(), "AGENTS.md")); content != "" {
		found = append(found, content)
	}
	if home, err := os.UserHomeDir(); err == nil {
		if content := readTrimmed(filepath.Join(home, ".claude", "CLAUDE.md")); content != "" {
			found = append(found, content)
		}
	}
	if cfg != nil {
		for _, path := range cfg.Instructions {
			if !filepath.IsAbs(path) {
				path = filepath.Join(ws.Cwd, path)
			}
			if content := readTrimmed(path); content != "" {
				found = append(found, content)
			}
		}
	}
	return found
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Assemble produces the ordered system messages for one turn: preamble,
// environment, custom instructions, then the mode prompt. Lists longer
// than two entries are compressed so providers that cache the first two
// system messages stay effective.
func Assemble(modelID, modePrompt string, ws *workspace.Info, cfg *config.Config) []string {
	parts := []string{Preamble(modelID), Environment(ws)}
	parts = append(parts, Custom(ws, cfg)...)
	if modePrompt != "" {
		parts = append(parts, modePrompt)
	}
	return Compress(parts)
}

// Compress reduces a system message list to at most two entries: the first
// unchanged, the second the rest joined by blank lines.
func Compress(parts []string) []string {
	if len(parts) <= 2 {
		return parts
	}
	return []string{parts[0], strings.Join(parts[1:], "\n\n")}
}

// Summarize returns the system prompts for conversation summarisation.
// The Anthropic provider gets the spoof preamble first.
func Summarize(providerID string) []string {
	if providerID == "anthropic" {
		return []string{strings.TrimSpace(spoofPrompt), strings.TrimSpace(summarizePrompt)}
	}
	return []string{strings.TrimSpace(summarizePrompt)}
}

// Title returns the system prompts for session title generation.
func Title(providerID string) []string {
	if providerID == "anthropic" {
		return []string{strings.TrimSpace(spoofPrompt), strings.TrimSpace(titlePrompt)}
	}
	return []string{strings.TrimSpace(titlePrompt)}
}
