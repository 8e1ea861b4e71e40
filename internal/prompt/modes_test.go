package prompt

import (
	"testing"

	"github.com/haasonsaas/opencode/internal/config"
)

func TestGetBuiltinModes(t *testing.T) {
	for _, name := range []string{"default", "review", "debug", "refactor"} {
		m, err := GetMode(nil, name)
		if err != nil {
			t.Fatalf("GetMode(%q): %v", name, err)
		}
		if m.SystemPrompt == "" || len(m.Tools) == 0 {
			t.Errorf("mode %q incomplete: %+v", name, m)
		}
	}
	if _, err := GetMode(nil, "nonexistent"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestReviewModeIsReadOnly(t *testing.T) {
	m, err := GetMode(nil, "review")
	if err != nil {
		t.Fatal(err)
	}
	for _, tool := range m.Tools {
		switch tool {
		case "bash", "write", "edit":
			t.Errorf("review mode allows mutating tool %q", tool)
		}
	}
}

func TestConfigModeOverridesBuiltin(t *testing.T) {
	cfg := &config.Config{
		Modes: map[string]config.ModeConfig{
			"default": {SystemPrompt: "custom default", Tools: []string{"read"}},
			"docs":    {Description: "docs mode", SystemPrompt: "write docs", Tools: []string{"read", "write"}},
		},
	}

	m, err := GetMode(cfg, "default")
	if err != nil {
		t.Fatal(err)
	}
	if m.SystemPrompt != "custom default" {
		t.Errorf("config mode did not take precedence: %q", m.SystemPrompt)
	}

	m, err = GetMode(cfg, "docs")
	if err != nil {
		t.Fatalf("custom mode missing: %v", err)
	}
	if m.Description != "docs mode" {
		t.Errorf("unexpected custom mode: %+v", m)
	}
}

func TestListModes(t *testing.T) {
	cfg := &config.Config{
		Modes: map[string]config.ModeConfig{
			"docs": {SystemPrompt: "write docs"},
		},
	}
	modes := ListModes(cfg)
	if len(modes) != 5 {
		t.Fatalf("got %d modes, want 5", len(modes))
	}
	// Sorted by name.
	for i := 1; i < len(modes); i++ {
		if modes[i-1].Name > modes[i].Name {
			t.Errorf("modes not sorted: %q before %q", modes[i-1].Name, modes[i].Name)
		}
	}
}

func TestDeleteBuiltinModeRejected(t *testing.T) {
	if err := DeleteMode("default"); err == nil {
		t.Error("expected error deleting built-in mode")
	}
}
