package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
)

// PatchTool applies a unified diff with the system patch command.
type PatchTool struct{}

func NewPatchTool() *PatchTool { return &PatchTool{} }

func (t *PatchTool) Name() string { return "patch" }

func (t *PatchTool) Description() string {
	return "Apply a unified diff to files in the workspace using the system " +
		"patch command. Set reverse to undo a previously applied patch."
}

func (t *PatchTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"patch": map[string]any{
				"type":        "string",
				"description": "Unified diff text to apply.",
			},
			"reverse": map[string]any{
				"type":        "boolean",
				"description": "Apply the patch in reverse.",
			},
		},
		"required": []string{"patch"},
	})
}

func (t *PatchTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		Patch   string `json:"patch"`
		Reverse bool   `json:"reverse"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Patch) == "" {
		return ErrorResult("patch text is required"), nil
	}

	args := []string{"-p0", "--batch"}
	if input.Reverse {
		args = append(args, "--reverse")
	}
	inv := InvocationFrom(ctx)
	cmd := exec.CommandContext(ctx, "patch", args...)
	cmd.Dir = inv.WorkspaceRoot
	cmd.Stdin = strings.NewReader(input.Patch)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return ErrorResult("patch failed: %v\n%s", err, out.String()), nil
	}
	output := strings.TrimSpace(out.String())
	if output == "" {
		output = "patch applied"
	}
	return &Result{
		Title:    "patch",
		Output:   output,
		Metadata: map[string]any{"reverse": input.Reverse},
	}, nil
}
