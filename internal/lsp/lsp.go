// Package lsp caches diagnostics and hover information published by
// language servers. Transport plumbing lives outside this package; tools
// only read the cache.
package lsp

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Severity mirrors the LSP DiagnosticSeverity scale.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported problem. Line and Column are 1-based.
type Diagnostic struct {
	Line     int
	Column   int
	Severity Severity
	Source   string
	Message  string
}

// Format renders the diagnostic the way tools report it to the model.
func (d Diagnostic) Format() string {
	src := ""
	if d.Source != "" {
		src = " [" + d.Source + "]"
	}
	return fmt.Sprintf("%s %d:%d%s %s", d.Severity, d.Line, d.Column, src, d.Message)
}

// Client is a process-wide diagnostics and hover cache keyed by absolute
// file path.
type Client struct {
	mu     sync.RWMutex
	diags  map[string][]Diagnostic
	hovers map[string]string
}

func NewClient() *Client {
	return &Client{
		diags:  make(map[string][]Diagnostic),
		hovers: make(map[string]string),
	}
}

// Publish replaces the cached diagnostics for a file. An empty list clears
// the entry.
func (c *Client) Publish(path string, diags []Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(diags) == 0 {
		delete(c.diags, path)
		return
	}
	c.diags[path] = append([]Diagnostic(nil), diags...)
}

// Get returns the cached diagnostics for one file.
func (c *Client) Get(path string) []Diagnostic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Diagnostic(nil), c.diags[path]...)
}

// All returns every cached diagnostic keyed by file path.
func (c *Client) All() map[string][]Diagnostic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]Diagnostic, len(c.diags))
	for path, ds := range c.diags {
		out[path] = append([]Diagnostic(nil), ds...)
	}
	return out
}

// PublishHover caches hover text for a file:line:column position.
func (c *Client) PublishHover(path string, line, column int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hovers[hoverKey(path, line, column)] = text
}

// Hover returns cached hover text for a position, or "".
func (c *Client) Hover(path string, line, column int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hovers[hoverKey(path, line, column)]
}

func hoverKey(path string, line, column int) string {
	return fmt.Sprintf("%s:%d:%d", path, line, column)
}

// FormatAll renders diagnostics for the given files (or every file when
// paths is empty) grouped and sorted by path.
func (c *Client) FormatAll(paths ...string) string {
	all := c.All()
	if len(paths) > 0 {
		filtered := make(map[string][]Diagnostic, len(paths))
		for _, p := range paths {
			if ds, ok := all[p]; ok {
				filtered[p] = ds
			}
		}
		all = filtered
	}
	if len(all) == 0 {
		return ""
	}
	files := make([]string, 0, len(all))
	for f := range all {
		files = append(files, f)
	}
	sort.Strings(files)
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s:\n", f)
		for _, d := range all[f] {
			fmt.Fprintf(&b, "  %s\n", d.Format())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
