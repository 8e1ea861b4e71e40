package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultBashTimeout = 60 * time.Second
	maxBashTimeout     = 600 * time.Second
	maxStreamBytes     = 30_000
)

// BashTool runs a shell command in the workspace and captures its output.
type BashTool struct{}

func NewBashTool() *BashTool { return &BashTool{} }

func (t *BashTool) Name() string { return "bash" }

func (t *BashTool) Description() string {
	return "Execute a shell command and return its stdout, stderr, and exit code. " +
		"Commands run with a 60 second timeout by default (600 second maximum)."
}

func (t *BashTool) Schema() json.RawMessage {
	return mustSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute.",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds (default 60, max 600).",
			},
		},
		"required": []string{"command"},
	})
}

func (t *BashTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var input struct {
		Command string `json:"command"`
		Timeout int    `json:"timeout"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Command) == "" {
		return ErrorResult("command is required"), nil
	}

	timeout := defaultBashTimeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout) * time.Second
		if timeout > maxBashTimeout {
			timeout = maxBashTimeout
		}
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inv := InvocationFrom(ctx)
	cmd := exec.CommandContext(runCtx, "bash", "-c", input.Command)
	cmd.Dir = inv.WorkspaceRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return ErrorResult("command timed out after %s", timeout), nil
	}
	if ctx.Err() != nil {
		return ErrorResult("command cancelled"), nil
	}

	var out strings.Builder
	if s := truncateStream(stdout.Bytes()); s != "" {
		out.WriteString(s)
	}
	if s := truncateStream(stderr.Bytes()); s != "" {
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString("<stderr>\n" + s + "\n</stderr>")
	}
	output := out.String()
	if output == "" {
		output = "(no output)"
	}

	res := &Result{
		Title:  input.Command,
		Output: output,
		Metadata: map[string]any{
			"exit_code": exitCode,
		},
	}
	if exitCode != 0 {
		res.IsError = true
		res.Metadata["error"] = fmt.Sprintf("exit code %d", exitCode)
	}
	return res, nil
}

func truncateStream(b []byte) string {
	if len(b) <= maxStreamBytes {
		return strings.TrimRight(string(b), "\n")
	}
	return strings.TrimRight(string(b[:maxStreamBytes]), "\n") +
		fmt.Sprintf("\n... output truncated at %d bytes ...", maxStreamBytes)
}
