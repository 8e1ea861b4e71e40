package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry holds the tool set and mediates execution: argument validation
// against each tool's schema, panic recovery, and error normalisation.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	compiled map[string]*jsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, replacing any tool with the same name. The tool's
// schema is compiled eagerly so malformed schemas surface at startup.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name+".json", bytes.NewReader(tool.Schema())); err != nil {
		return fmt.Errorf("tool %s: invalid schema: %w", name, err)
	}
	schema, err := compiler.Compile(name + ".json")
	if err != nil {
		return fmt.Errorf("tool %s: compile schema: %w", name, err)
	}
	r.tools[name] = tool
	r.compiled[name] = schema
	return nil
}

// Get returns the named tool, or ok=false.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ListAllowed returns the registered subset of allowed, in registry sort
// order. An empty allowed list means every tool.
func (r *Registry) ListAllowed(allowed []string) []Tool {
	if len(allowed) == 0 {
		return r.List()
	}
	set := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		set[name] = true
	}
	var out []Tool
	for _, t := range r.List() {
		if set[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}

// Declaration is an OpenAI-style function declaration for one tool.
type Declaration struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

// Schemas packages tools as function-calling declarations.
func Schemas(ts []Tool) []Declaration {
	decls := make([]Declaration, 0, len(ts))
	for _, t := range ts {
		var d Declaration
		d.Type = "function"
		d.Function.Name = t.Name()
		d.Function.Description = t.Description()
		d.Function.Parameters = t.Schema()
		decls = append(decls, d)
	}
	return decls
}

// Execute validates args against the tool's schema and runs it. Unknown
// tools, validation failures, tool errors, and panics all come back as
// error-shaped results rather than Go errors, so the model can react.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (result *Result) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.compiled[name]
	r.mu.RUnlock()
	if !ok {
		return ErrorResult("unknown tool: %s", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool panicked", "tool", name, "panic", rec)
			result = ErrorResult("tool %s panicked: %v", name, rec)
		}
	}()

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return ErrorResult("tool %s: invalid JSON arguments: %v", name, err)
	}
	if err := schema.Validate(decoded); err != nil {
		return ErrorResult("tool %s: invalid arguments: %v", name, err)
	}

	res, err := tool.Execute(ctx, args)
	if err != nil {
		return ErrorResult("tool %s failed: %v", name, err)
	}
	if res == nil {
		return ErrorResult("tool %s returned no result", name)
	}
	return res
}
