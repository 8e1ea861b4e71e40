package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func runRead(t *testing.T, ctx context.Context, args map[string]any) *Result {
	t.Helper()
	params, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	res, err := NewReadTool().Execute(ctx, params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return res
}

func TestReadWholeFile(t *testing.T) {
	ctx, root := editCtx(t)
	writeFile(t, root, "f.txt", "one\ntwo\nthree\n")

	res := runRead(t, ctx, map[string]any{"file_path": "f.txt"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	if !strings.HasPrefix(res.Output, "<file>\n") || !strings.HasSuffix(res.Output, "</file>") {
		t.Errorf("output not wrapped in <file>: %q", res.Output)
	}
	if !strings.Contains(res.Output, "    1| one") || !strings.Contains(res.Output, "    3| three") {
		t.Errorf("missing numbered lines:\n%s", res.Output)
	}
}

func TestReadOffsetLimit(t *testing.T) {
	ctx, root := editCtx(t)
	var b strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "line%d\n", i)
	}
	writeFile(t, root, "f.txt", b.String())

	// offset skips lines: offset=4, limit=2 reads lines 5 and 6.
	res := runRead(t, ctx, map[string]any{"file_path": "f.txt", "offset": 4, "limit": 2})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	if !strings.Contains(res.Output, "    5| line5") || !strings.Contains(res.Output, "    6| line6") {
		t.Errorf("window wrong:\n%s", res.Output)
	}
	if strings.Contains(res.Output, "line4\n") || strings.Contains(res.Output, "line7\n") {
		t.Errorf("lines outside window present:\n%s", res.Output)
	}
	if !strings.Contains(res.Output, "more lines") {
		t.Errorf("missing truncation marker:\n%s", res.Output)
	}

	res = runRead(t, ctx, map[string]any{"file_path": "f.txt", "offset": 50})
	if !res.IsError {
		t.Errorf("expected error for offset past end, got:\n%s", res.Output)
	}
}

func TestReadClipsLongLines(t *testing.T) {
	ctx, root := editCtx(t)
	long := strings.Repeat("a", 2500)
	writeFile(t, root, "f.txt", long+"\n")

	res := runRead(t, ctx, map[string]any{"file_path": "f.txt"})
	if res.IsError {
		t.Fatal(res.Output)
	}
	if strings.Contains(res.Output, strings.Repeat("a", 2001)) {
		t.Error("long line not clipped")
	}
	if !strings.Contains(res.Output, strings.Repeat("a", 2000)+"...") {
		t.Error("clipped line missing ellipsis")
	}
}

func TestReadRefusesLargeFile(t *testing.T) {
	ctx, root := editCtx(t)
	writeFile(t, root, "big.txt", strings.Repeat("x", maxReadBytes+1))

	res := runRead(t, ctx, map[string]any{"file_path": "big.txt"})
	if !res.IsError {
		t.Error("expected error for oversized file")
	}
}

func TestReadRefusesImages(t *testing.T) {
	ctx, root := editCtx(t)
	writeFile(t, root, "pic.png", "not really a png")

	res := runRead(t, ctx, map[string]any{"file_path": "pic.png"})
	if !res.IsError || !strings.Contains(res.Output, "image") {
		t.Errorf("expected image refusal, got: %s", res.Output)
	}
}

func TestReadMissingFileSuggestsSimilar(t *testing.T) {
	ctx, root := editCtx(t)
	writeFile(t, root, "config.yaml", "a: 1\n")
	writeFile(t, root, "config.json", "{}\n")

	res := runRead(t, ctx, map[string]any{"file_path": "config.toml"})
	if !res.IsError {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(res.Output, "config.yaml") && !strings.Contains(res.Output, "config.json") {
		t.Errorf("expected suggestions, got: %s", res.Output)
	}
}
