// Package agent orchestrates chat turns: it assembles prompts, streams
// model output, executes requested tools in order, and persists the
// conversation.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/opencode/internal/config"
	"github.com/haasonsaas/opencode/internal/prompt"
	"github.com/haasonsaas/opencode/internal/providers"
	"github.com/haasonsaas/opencode/internal/sessions"
	"github.com/haasonsaas/opencode/internal/tools"
	"github.com/haasonsaas/opencode/internal/workspace"
	"github.com/haasonsaas/opencode/pkg/models"
)

const (
	// chunkBuffer bounds the output queue; a stalled consumer applies
	// backpressure instead of dropping chunks.
	chunkBuffer = 32
	// maxToolDepth caps model turns within one user turn.
	maxToolDepth = 8
	// synthChunkSize is the slice size when synthesising streaming from a
	// non-streaming provider.
	synthChunkSize = 20
	// synthDelay paces synthesised chunks.
	synthDelay = 10 * time.Millisecond
)

// Agent wires the registries and stores a turn needs.
type Agent struct {
	Providers *providers.Registry
	Tools     *tools.Registry
	Sessions  *sessions.Store
	Config    *config.Config
	Workspace *workspace.Info
}

// New builds an agent.
func New(p *providers.Registry, t *tools.Registry, s *sessions.Store, cfg *config.Config, ws *workspace.Info) *Agent {
	return &Agent{Providers: p, Tools: t, Sessions: s, Config: cfg, Workspace: ws}
}

// Chat runs one turn. The returned channel delivers chunks in order and is
// closed after exactly one terminal ChunkDone. Cancelling ctx stops the
// turn with ChunkError("cancelled") followed by ChunkDone.
func (a *Agent) Chat(ctx context.Context, req *ChatRequest) (<-chan *Chunk, error) {
	session, ok := a.Sessions.Get(req.SessionID)
	if !ok {
		return nil, fmt.Errorf("session %s not found", req.SessionID)
	}

	modeName := req.Mode
	if modeName == "" {
		modeName = session.Mode
	}
	mode, err := prompt.GetMode(a.Config, modeName)
	if err != nil {
		return nil, err
	}

	ref := req.ModelID
	if req.ProviderID != "" {
		ref = req.ProviderID + "/" + req.ModelID
	}
	provider, modelID, err := a.Providers.Resolve(ctx, a.Config, ref)
	if err != nil {
		return nil, err
	}

	history, err := a.buildHistory(modelID, mode, session.ID, req.Text)
	if err != nil {
		return nil, err
	}
	allowed := a.Tools.ListAllowed(mode.Tools)

	out := make(chan *Chunk, chunkBuffer)
	go a.runTurn(ctx, out, provider, modelID, mode, session.ID, req.Text, history, allowed)
	return out, nil
}

// buildHistory assembles the request messages: system prompts, persisted
// history, then the new user message.
func (a *Agent) buildHistory(modelID string, mode prompt.Mode, sessionID, text string) ([]providers.ChatMessage, error) {
	var msgs []providers.ChatMessage
	for _, sys := range prompt.Assemble(modelID, mode.SystemPrompt, a.Workspace, a.Config) {
		msgs = append(msgs, providers.ChatMessage{Role: "system", Content: sys})
	}
	stored, err := a.Sessions.GetMessages(sessionID)
	if err != nil {
		return nil, err
	}
	for _, m := range stored {
		if content := m.TextContent(); content != "" {
			msgs = append(msgs, providers.ChatMessage{Role: string(m.Role), Content: content})
		}
	}
	msgs = append(msgs, providers.ChatMessage{Role: "user", Content: text})
	return msgs, nil
}

func (a *Agent) runTurn(
	ctx context.Context,
	out chan<- *Chunk,
	provider providers.Provider,
	modelID string,
	mode prompt.Mode,
	sessionID, text string,
	history []providers.ChatMessage,
	allowed []tools.Tool,
) {
	defer close(out)

	// emit blocks on the bounded queue; it bails out on cancellation so a
	// stalled consumer cannot wedge the turn forever.
	emit := func(c *Chunk) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// finish sends the terminal chunks. Sends block: the consumer owns the
	// drain until the channel closes, so the cancelled/done pair arrives
	// even when the buffer is full at cancellation time.
	finish := func(usage *models.Usage) {
		if ctx.Err() != nil {
			out <- &Chunk{Kind: ChunkError, Error: "cancelled"}
			out <- &Chunk{Kind: ChunkDone}
			return
		}
		out <- &Chunk{Kind: ChunkDone, Usage: usage}
	}

	userMsg := &models.Message{Role: models.RoleUser, Timestamp: time.Now()}
	userMsg.AddText(text)
	if err := a.Sessions.AddMessage(sessionID, userMsg); err != nil {
		emit(&Chunk{Kind: ChunkError, Error: err.Error()})
		finish(nil)
		return
	}

	assistant := &models.Message{Role: models.RoleAssistant, Timestamp: time.Now()}
	var accumulated string
	persist := func() {
		if accumulated != "" {
			assistant.AddText(accumulated)
		}
		if len(assistant.Parts) > 0 {
			if err := a.Sessions.AddMessage(sessionID, assistant); err != nil {
				slog.Error("failed to persist assistant message", "session", sessionID, "error", err)
			}
		}
	}

	var usage *models.Usage

	for depth := 0; depth < maxToolDepth; depth++ {
		req := &providers.ChatRequest{
			Model:       modelID,
			Messages:    history,
			Tools:       allowed,
			Temperature: mode.Temperature,
			Initiator:   providers.InitiatorFor(history),
		}
		if mode.MaxTokens != nil {
			req.MaxTokens = *mode.MaxTokens
		}

		chunks, err := a.invoke(ctx, provider, req)
		if err != nil {
			emit(&Chunk{Kind: ChunkError, Error: err.Error()})
			persist()
			finish(nil)
			return
		}

		var roundContent string
		var roundCalls []models.ToolCall
		failed := false
		for chunk := range chunks {
			if ctx.Err() != nil {
				drain(chunks)
				persist()
				finish(nil)
				return
			}
			switch {
			case chunk.Err != nil:
				emit(&Chunk{Kind: ChunkError, Error: chunk.Err.Error()})
				failed = true
			case chunk.Content != "":
				roundContent += chunk.Content
				if !emit(&Chunk{Kind: ChunkContent, Content: chunk.Content}) {
					drain(chunks)
					persist()
					finish(nil)
					return
				}
			case len(chunk.ToolCalls) > 0:
				roundCalls = append(roundCalls, chunk.ToolCalls...)
			case chunk.Done:
				if chunk.Usage != nil {
					usage = chunk.Usage
				}
			}
		}
		accumulated += roundContent
		if failed {
			persist()
			finish(nil)
			return
		}

		if len(roundCalls) == 0 {
			persist()
			finish(usage)
			return
		}

		// The model asked for tools: run them strictly in emission order,
		// then hand the augmented history back for another turn.
		history = append(history, providers.ChatMessage{
			Role:      "assistant",
			Content:   roundContent,
			ToolCalls: roundCalls,
		})
		for _, call := range roundCalls {
			result, aborted := a.runTool(ctx, emit, sessionID, assistant, call)
			if aborted {
				persist()
				finish(nil)
				return
			}
			history = append(history, providers.ChatMessage{
				Role:       "tool",
				Content:    result.Output,
				ToolCallID: call.ID,
			})
		}
	}

	emit(&Chunk{Kind: ChunkError, Error: fmt.Sprintf("tool depth limit (%d) reached", maxToolDepth)})
	persist()
	finish(nil)
}

// runTool executes one requested call and emits its lifecycle chunks.
// aborted is true when the turn was cancelled mid-execution.
func (a *Agent) runTool(
	ctx context.Context,
	emit func(*Chunk) bool,
	sessionID string,
	assistant *models.Message,
	call models.ToolCall,
) (*tools.Result, bool) {
	args := json.RawMessage(call.Function.Arguments)
	if !emit(&Chunk{
		Kind:       ChunkToolStart,
		ToolCallID: call.ID,
		ToolName:   call.Function.Name,
		ToolArgs:   args,
	}) {
		return nil, true
	}

	var argMap map[string]any
	_ = json.Unmarshal(args, &argMap)
	part := assistant.AddTool(call.Function.Name, argMap)
	part.State.Status = models.ToolRunning

	toolCtx := tools.WithInvocation(ctx, &tools.Invocation{
		SessionID:     sessionID,
		MessageID:     assistant.ID,
		WorkspaceRoot: a.Workspace.Root,
	})
	result := a.Tools.Execute(toolCtx, call.Function.Name, args)
	if ctx.Err() != nil {
		part.State.Status = models.ToolError
		part.State.Output = "cancelled"
		return nil, true
	}

	part.State.Title = result.Title
	part.State.Output = result.Output
	part.State.Metadata = result.Metadata
	kind := ChunkToolResult
	if result.IsError {
		kind = ChunkToolError
		part.State.Status = models.ToolError
	} else {
		part.State.Status = models.ToolCompleted
	}
	if !emit(&Chunk{
		Kind:       kind,
		ToolCallID: call.ID,
		ToolName:   call.Function.Name,
		Output:     result.Output,
	}) {
		return nil, true
	}
	return result, false
}

// invoke calls the provider, preferring streaming and synthesising it
// otherwise.
func (a *Agent) invoke(ctx context.Context, p providers.Provider, req *providers.ChatRequest) (<-chan *providers.Chunk, error) {
	if sp, ok := p.(providers.StreamingProvider); ok {
		return sp.ChatStream(ctx, req)
	}
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	chunks := make(chan *providers.Chunk)
	go synthesiseStream(ctx, resp, chunks)
	return chunks, nil
}

// synthesiseStream slices a blocking response into paced content chunks so
// downstream consumers see a uniform streaming interface.
func synthesiseStream(ctx context.Context, resp *providers.ChatResponse, chunks chan<- *providers.Chunk) {
	defer close(chunks)
	content := resp.Content
	for len(content) > 0 {
		n := synthChunkSize
		if n > len(content) {
			n = len(content)
		}
		select {
		case <-ctx.Done():
			chunks <- &providers.Chunk{Err: ctx.Err()}
			chunks <- &providers.Chunk{Done: true}
			return
		case <-time.After(synthDelay):
		}
		chunks <- &providers.Chunk{Content: content[:n]}
		content = content[n:]
	}
	if len(resp.ToolCalls) > 0 {
		chunks <- &providers.Chunk{ToolCalls: resp.ToolCalls}
	}
	chunks <- &providers.Chunk{Done: true, Usage: &resp.Usage}
}

func drain(ch <-chan *providers.Chunk) {
	for range ch {
	}
}
