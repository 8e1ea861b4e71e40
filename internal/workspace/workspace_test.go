package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveInsideGitRepo(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "pkg", "deep")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	info, err := Resolve(sub)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !info.Git {
		t.Error("expected Git=true")
	}
	if info.Root != root {
		t.Errorf("Root = %q, want %q", info.Root, root)
	}
	if info.Cwd != sub {
		t.Errorf("Cwd = %q, want %q", info.Cwd, sub)
	}
}

func TestResolveOutsideGitRepo(t *testing.T) {
	dir := t.TempDir()
	info, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.Git {
		t.Error("expected Git=false")
	}
	if info.Root != dir {
		t.Errorf("Root = %q, want %q", info.Root, dir)
	}
}

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "AGENTS.md")
	if err := os.WriteFile(target, []byte("instructions"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := FindUp("AGENTS.md", sub); got != target {
		t.Errorf("FindUp = %q, want %q", got, target)
	}
	if got := FindUp("NOPE.md", sub); got != "" {
		t.Errorf("FindUp missing file = %q, want empty", got)
	}
}
