package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type fakeTool struct {
	name    string
	execute func(ctx context.Context, params json.RawMessage) (*Result, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool" }

func (f *fakeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"value": {"type": "string"}},
		"required": ["value"]
	}`)
}

func (f *fakeTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	return f.execute(ctx, params)
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&fakeTool{
		name: "echo",
		execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			var in struct {
				Value string `json:"value"`
			}
			json.Unmarshal(params, &in)
			return &Result{Output: in.Value}, nil
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	res := r.Execute(context.Background(), "echo", json.RawMessage(`{"value":"hi"}`))
	if res.IsError || res.Output != "hi" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRegistryValidatesArgs(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(&fakeTool{
		name: "strict",
		execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			called = true
			return &Result{Output: "ok"}, nil
		},
	})

	// Missing required property.
	res := r.Execute(context.Background(), "strict", json.RawMessage(`{}`))
	if !res.IsError {
		t.Error("expected validation error")
	}
	if called {
		t.Error("tool executed despite invalid arguments")
	}

	// Wrong type.
	res = r.Execute(context.Background(), "strict", json.RawMessage(`{"value":42}`))
	if !res.IsError {
		t.Error("expected type validation error")
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Execute(context.Background(), "nope", nil)
	if !res.IsError || !strings.Contains(res.Output, "unknown tool") {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRegistryRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{
		name: "boom",
		execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			panic("kaboom")
		},
	})

	res := r.Execute(context.Background(), "boom", json.RawMessage(`{"value":"x"}`))
	if !res.IsError || !strings.Contains(res.Output, "kaboom") {
		t.Errorf("panic not normalised: %+v", res)
	}
}

func TestRegistryListAllowed(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		r.Register(&fakeTool{name: name, execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
			return &Result{}, nil
		}})
	}

	all := r.ListAllowed(nil)
	if len(all) != 3 {
		t.Errorf("ListAllowed(nil) = %d tools, want 3", len(all))
	}
	subset := r.ListAllowed([]string{"c", "a", "missing"})
	if len(subset) != 2 || subset[0].Name() != "a" || subset[1].Name() != "c" {
		names := make([]string, len(subset))
		for i, tl := range subset {
			names[i] = tl.Name()
		}
		t.Errorf("ListAllowed subset = %v", names)
	}
}

func TestSchemasDeclarations(t *testing.T) {
	ft := &fakeTool{name: "echo", execute: func(ctx context.Context, params json.RawMessage) (*Result, error) {
		return &Result{}, nil
	}}
	decls := Schemas([]Tool{ft})
	if len(decls) != 1 {
		t.Fatalf("got %d declarations", len(decls))
	}
	d := decls[0]
	if d.Type != "function" || d.Function.Name != "echo" || d.Function.Description == "" {
		t.Errorf("unexpected declaration: %+v", d)
	}
	var schema map[string]any
	if err := json.Unmarshal(d.Function.Parameters, &schema); err != nil {
		t.Fatalf("parameters not valid JSON: %v", err)
	}
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	r, err := NewDefaultRegistry(nil)
	if err != nil {
		t.Fatalf("NewDefaultRegistry: %v", err)
	}
	for _, name := range []string{
		"bash", "read", "write", "edit", "multiedit", "patch",
		"grep", "glob", "list", "webfetch",
		"lsp_diagnostics", "lsp_hover", "task", "todo_read", "todo_write",
	} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("missing builtin tool %q", name)
		}
	}
}
