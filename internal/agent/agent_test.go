package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/opencode/internal/config"
	"github.com/haasonsaas/opencode/internal/providers"
	"github.com/haasonsaas/opencode/internal/sessions"
	"github.com/haasonsaas/opencode/internal/tools"
	"github.com/haasonsaas/opencode/internal/workspace"
	"github.com/haasonsaas/opencode/pkg/models"
)

// scriptedProvider replays one pre-built chunk stream per invocation and
// records the requests it saw.
type scriptedProvider struct {
	mu     sync.Mutex
	rounds [][]*providers.Chunk
	reqs   []*providers.ChatRequest
}

func (p *scriptedProvider) Info() models.ProviderInfo {
	return models.ProviderInfo{ID: "fake", Name: "Fake", Models: []models.ModelInfo{{ID: "fake-model"}}}
}

func (p *scriptedProvider) IsAuthenticated(ctx context.Context) bool { return true }

func (p *scriptedProvider) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	return nil, fmt.Errorf("scriptedProvider is streaming only")
}

func (p *scriptedProvider) ChatStream(ctx context.Context, req *providers.ChatRequest) (<-chan *providers.Chunk, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	if len(p.rounds) == 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("no scripted rounds left")
	}
	round := p.rounds[0]
	p.rounds = p.rounds[1:]
	p.mu.Unlock()

	out := make(chan *providers.Chunk)
	go func() {
		defer close(out)
		for _, c := range round {
			out <- c
		}
	}()
	return out, nil
}

func (p *scriptedProvider) requests() []*providers.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reqs
}

// blockingProvider emits one content chunk, then holds the stream open
// until the context is cancelled.
type blockingProvider struct{ scriptedProvider }

func (p *blockingProvider) ChatStream(ctx context.Context, req *providers.ChatRequest) (<-chan *providers.Chunk, error) {
	out := make(chan *providers.Chunk)
	go func() {
		defer close(out)
		out <- &providers.Chunk{Content: "partial"}
		<-ctx.Done()
	}()
	return out, nil
}

// plainProvider only implements the blocking Chat call, forcing the agent
// to synthesise a stream.
type plainProvider struct {
	resp *providers.ChatResponse
}

func (p *plainProvider) Info() models.ProviderInfo {
	return models.ProviderInfo{ID: "fake", Name: "Fake", Models: []models.ModelInfo{{ID: "fake-model"}}}
}

func (p *plainProvider) IsAuthenticated(ctx context.Context) bool { return true }

func (p *plainProvider) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	return p.resp, nil
}

type echoTool struct{ fail bool }

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echo back the text argument" }
func (t *echoTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`)
}
func (t *echoTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	if t.fail {
		return tools.ErrorResult("echo failed"), nil
	}
	var p struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return &tools.Result{Title: "echo", Output: p.Text}, nil
}

func newTestAgent(t *testing.T, p providers.Provider, toolList ...tools.Tool) (*Agent, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	preg := providers.NewRegistry()
	preg.Register(p)

	treg := tools.NewRegistry()
	for _, tool := range toolList {
		if err := treg.Register(tool); err != nil {
			t.Fatalf("Register(%s): %v", tool.Name(), err)
		}
	}

	store := sessions.NewStoreAt(t.TempDir())
	session, err := store.Create("default")
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}

	dir := t.TempDir()
	ws := &workspace.Info{Cwd: dir, Root: dir}
	return New(preg, treg, store, &config.Config{}, ws), session.ID
}

func collect(t *testing.T, ch <-chan *Chunk) []*Chunk {
	t.Helper()
	var out []*Chunk
	deadline := time.After(10 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, c)
		case <-deadline:
			t.Fatalf("stream did not finish; got %d chunks", len(out))
		}
	}
}

func contentOf(chunks []*Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		if c.Kind == ChunkContent {
			b.WriteString(c.Content)
		}
	}
	return b.String()
}

func countDone(chunks []*Chunk) int {
	n := 0
	for _, c := range chunks {
		if c.Kind == ChunkDone {
			n++
		}
	}
	return n
}

func TestChatEchoTurn(t *testing.T) {
	p := &scriptedProvider{rounds: [][]*providers.Chunk{{
		{Content: "hel"},
		{Content: "lo"},
		{Done: true, Usage: &models.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}},
	}}}
	agent, sid := newTestAgent(t, p)

	ch, err := agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	if got := contentOf(chunks); got != "hello" {
		t.Errorf("content = %q, want hello", got)
	}
	if countDone(chunks) != 1 {
		t.Errorf("done chunks = %d, want 1", countDone(chunks))
	}
	last := chunks[len(chunks)-1]
	if last.Kind != ChunkDone {
		t.Errorf("last chunk = %s, want done", last.Kind)
	}
	if last.Usage == nil || last.Usage.TotalTokens != 5 {
		t.Errorf("usage = %+v", last.Usage)
	}

	msgs, err := agent.Sessions.GetMessages(sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[0].TextContent() != "hi" {
		t.Errorf("user message = %s %q", msgs[0].Role, msgs[0].TextContent())
	}
	if msgs[1].Role != models.RoleAssistant || msgs[1].TextContent() != "hello" {
		t.Errorf("assistant message = %s %q", msgs[1].Role, msgs[1].TextContent())
	}
}

func TestChatToolCallTurn(t *testing.T) {
	call := models.ToolCall{ID: "call_1", Function: models.FunctionCall{Name: "echo", Arguments: `{"text":"pong"}`}}
	p := &scriptedProvider{rounds: [][]*providers.Chunk{
		{{ToolCalls: []models.ToolCall{call}}, {Done: true}},
		{{Content: "the tool said pong"}, {Done: true}},
	}}
	agent, sid := newTestAgent(t, p, &echoTool{})

	ch, err := agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "run echo"})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	startIdx, resultIdx := -1, -1
	for i, c := range chunks {
		switch c.Kind {
		case ChunkToolStart:
			startIdx = i
			if c.ToolCallID != "call_1" || c.ToolName != "echo" {
				t.Errorf("tool_start = %q %q", c.ToolCallID, c.ToolName)
			}
		case ChunkToolResult:
			resultIdx = i
			if c.ToolCallID != "call_1" || c.Output != "pong" {
				t.Errorf("tool_result = %q %q", c.ToolCallID, c.Output)
			}
		case ChunkToolError:
			t.Errorf("unexpected tool_error: %+v", c)
		}
	}
	if startIdx == -1 || resultIdx == -1 || startIdx > resultIdx {
		t.Fatalf("tool lifecycle out of order: start=%d result=%d", startIdx, resultIdx)
	}
	if got := contentOf(chunks); got != "the tool said pong" {
		t.Errorf("content = %q", got)
	}
	if countDone(chunks) != 1 {
		t.Errorf("done chunks = %d", countDone(chunks))
	}

	reqs := p.requests()
	if len(reqs) != 2 {
		t.Fatalf("provider invocations = %d, want 2", len(reqs))
	}
	second := reqs[1].Messages
	toolMsg := second[len(second)-1]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call_1" || toolMsg.Content != "pong" {
		t.Errorf("tool message = %+v", toolMsg)
	}
	if second[len(second)-2].Role != "assistant" || len(second[len(second)-2].ToolCalls) != 1 {
		t.Errorf("assistant tool-call message missing: %+v", second[len(second)-2])
	}
	if reqs[0].Initiator != providers.InitiatorUser {
		t.Errorf("first initiator = %q", reqs[0].Initiator)
	}
	if reqs[1].Initiator != providers.InitiatorAgent {
		t.Errorf("follow-up initiator = %q", reqs[1].Initiator)
	}
}

func TestChatInitiatorReflectsSessionHistory(t *testing.T) {
	p := &scriptedProvider{rounds: [][]*providers.Chunk{
		{{Content: "first"}, {Done: true}},
		{{Content: "second"}, {Done: true}},
	}}
	agent, sid := newTestAgent(t, p)

	ch, err := agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	collect(t, ch)

	// The second user turn sees the persisted assistant reply, so the
	// provider call is agent-initiated.
	ch, err = agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "again"})
	if err != nil {
		t.Fatal(err)
	}
	collect(t, ch)

	reqs := p.requests()
	if len(reqs) != 2 {
		t.Fatalf("provider invocations = %d, want 2", len(reqs))
	}
	if reqs[0].Initiator != providers.InitiatorUser {
		t.Errorf("fresh session initiator = %q", reqs[0].Initiator)
	}
	if reqs[1].Initiator != providers.InitiatorAgent {
		t.Errorf("follow-up session initiator = %q", reqs[1].Initiator)
	}
}

func TestChatToolErrorIsNotFatal(t *testing.T) {
	call := models.ToolCall{ID: "call_1", Function: models.FunctionCall{Name: "echo", Arguments: `{"text":"x"}`}}
	p := &scriptedProvider{rounds: [][]*providers.Chunk{
		{{ToolCalls: []models.ToolCall{call}}, {Done: true}},
		{{Content: "recovered"}, {Done: true}},
	}}
	agent, sid := newTestAgent(t, p, &echoTool{fail: true})

	ch, err := agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "go"})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	sawToolError := false
	for _, c := range chunks {
		if c.Kind == ChunkToolError {
			sawToolError = true
			if c.Output != "echo failed" {
				t.Errorf("tool_error output = %q", c.Output)
			}
		}
		if c.Kind == ChunkError {
			t.Errorf("tool failure escalated to turn error: %+v", c)
		}
	}
	if !sawToolError {
		t.Error("missing tool_error chunk")
	}
	if got := contentOf(chunks); got != "recovered" {
		t.Errorf("content = %q", got)
	}
	if countDone(chunks) != 1 {
		t.Errorf("done chunks = %d", countDone(chunks))
	}
}

func TestChatProviderErrorThenDone(t *testing.T) {
	p := &scriptedProvider{rounds: [][]*providers.Chunk{{
		{Content: "par"},
		{Err: fmt.Errorf("rate limited")},
	}}}
	agent, sid := newTestAgent(t, p)

	ch, err := agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	errIdx, doneIdx := -1, -1
	for i, c := range chunks {
		if c.Kind == ChunkError {
			errIdx = i
			if !strings.Contains(c.Error, "rate limited") {
				t.Errorf("error = %q", c.Error)
			}
		}
		if c.Kind == ChunkDone {
			doneIdx = i
		}
	}
	if errIdx == -1 || doneIdx == -1 || errIdx > doneIdx {
		t.Fatalf("error/done out of order: err=%d done=%d", errIdx, doneIdx)
	}
	if countDone(chunks) != 1 {
		t.Errorf("done chunks = %d", countDone(chunks))
	}

	// The partial content still gets persisted.
	msgs, err := agent.Sessions.GetMessages(sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[1].TextContent() != "par" {
		t.Errorf("persisted = %d messages, assistant %q", len(msgs), msgs[len(msgs)-1].TextContent())
	}
}

func TestChatSynthesisedStream(t *testing.T) {
	text := strings.Repeat("abcde", 9) // 45 chars: 20 + 20 + 5
	p := &plainProvider{resp: &providers.ChatResponse{
		Content: text,
		Usage:   models.Usage{TotalTokens: 9},
	}}
	agent, sid := newTestAgent(t, p)

	ch, err := agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	var contents []string
	for _, c := range chunks {
		if c.Kind == ChunkContent {
			if len(c.Content) > synthChunkSize {
				t.Errorf("chunk size %d exceeds %d", len(c.Content), synthChunkSize)
			}
			contents = append(contents, c.Content)
		}
	}
	if len(contents) != 3 {
		t.Errorf("content chunks = %d, want 3", len(contents))
	}
	if strings.Join(contents, "") != text {
		t.Errorf("reassembled content mismatch")
	}
	last := chunks[len(chunks)-1]
	if last.Kind != ChunkDone || last.Usage == nil || last.Usage.TotalTokens != 9 {
		t.Errorf("terminal chunk = %+v", last)
	}
}

func TestChatToolDepthLimit(t *testing.T) {
	call := models.ToolCall{ID: "loop", Function: models.FunctionCall{Name: "echo", Arguments: `{"text":"again"}`}}
	rounds := make([][]*providers.Chunk, maxToolDepth)
	for i := range rounds {
		rounds[i] = []*providers.Chunk{{ToolCalls: []models.ToolCall{call}}, {Done: true}}
	}
	p := &scriptedProvider{rounds: rounds}
	agent, sid := newTestAgent(t, p, &echoTool{})

	ch, err := agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "loop"})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	if got := len(p.requests()); got != maxToolDepth {
		t.Errorf("provider invocations = %d, want %d", got, maxToolDepth)
	}
	sawLimit := false
	for _, c := range chunks {
		if c.Kind == ChunkError && strings.Contains(c.Error, "depth") {
			sawLimit = true
		}
	}
	if !sawLimit {
		t.Error("missing depth limit error")
	}
	if countDone(chunks) != 1 {
		t.Errorf("done chunks = %d", countDone(chunks))
	}
}

func TestChatCancellation(t *testing.T) {
	p := &blockingProvider{}
	agent, sid := newTestAgent(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := agent.Chat(ctx, &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	first := <-ch
	if first.Kind != ChunkContent || first.Content != "partial" {
		t.Fatalf("first chunk = %+v", first)
	}
	cancel()

	chunks := collect(t, ch)
	sawCancelled := false
	for _, c := range chunks {
		if c.Kind == ChunkError && c.Error == "cancelled" {
			sawCancelled = true
		}
	}
	if !sawCancelled {
		t.Error("missing cancelled error chunk")
	}
	if n := countDone(chunks); n > 1 {
		t.Errorf("done chunks = %d, want at most 1", n)
	}
	if len(chunks) > 0 && chunks[len(chunks)-1].Kind == ChunkError {
		t.Error("stream ended on error without terminal done")
	}
}

func TestChatCancellationWithFullBuffer(t *testing.T) {
	// More content chunks than the output buffer holds; nothing is read
	// until after cancellation, so the producer is blocked on a full
	// buffer when the turn is cancelled.
	round := make([]*providers.Chunk, 0, chunkBuffer+9)
	for i := 0; i < chunkBuffer+8; i++ {
		round = append(round, &providers.Chunk{Content: "x"})
	}
	round = append(round, &providers.Chunk{Done: true})
	p := &scriptedProvider{rounds: [][]*providers.Chunk{round}}
	agent, sid := newTestAgent(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := agent.Chat(ctx, &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	chunks := collect(t, ch)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least the terminal pair", len(chunks))
	}
	if c := chunks[len(chunks)-2]; c.Kind != ChunkError || c.Error != "cancelled" {
		t.Errorf("penultimate chunk = %+v, want cancelled error", c)
	}
	if c := chunks[len(chunks)-1]; c.Kind != ChunkDone {
		t.Errorf("last chunk = %+v, want done", c)
	}
	if countDone(chunks) != 1 {
		t.Errorf("done chunks = %d, want 1", countDone(chunks))
	}
}

func TestChatUnknownSession(t *testing.T) {
	agent, _ := newTestAgent(t, &scriptedProvider{})
	if _, err := agent.Chat(context.Background(), &ChatRequest{SessionID: "nope", ProviderID: "fake", ModelID: "fake-model", Text: "hi"}); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestChatUnknownMode(t *testing.T) {
	agent, sid := newTestAgent(t, &scriptedProvider{})
	if _, err := agent.Chat(context.Background(), &ChatRequest{SessionID: sid, ProviderID: "fake", ModelID: "fake-model", Mode: "nope", Text: "hi"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}
