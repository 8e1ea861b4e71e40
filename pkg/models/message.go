package models

import (
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// PartType distinguishes the members of the Part union.
type PartType string

const (
	PartText PartType = "text"
	PartTool PartType = "tool"
)

// ToolStatus tracks the lifecycle of a tool invocation recorded in a message.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// ToolState captures the observable state of a tool part.
type ToolState struct {
	Status   ToolStatus     `json:"status"`
	Title    string         `json:"title,omitempty"`
	Output   string         `json:"output,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Part is one element of a message. Type selects which fields are
// meaningful: text parts carry Text, tool parts carry Tool/Args/State.
type Part struct {
	Type      PartType       `json:"type"`
	Text      string         `json:"text,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	State     *ToolState     `json:"state,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Message is a single entry in a session's conversation. Messages are
// append-only: once persisted they are never mutated.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AddText appends a text part and returns a pointer to it.
func (m *Message) AddText(text string) *Part {
	m.Parts = append(m.Parts, Part{
		Type:      PartText,
		Text:      text,
		Timestamp: time.Now(),
	})
	return &m.Parts[len(m.Parts)-1]
}

// AddTool appends a tool part in the pending state and returns a pointer to it.
func (m *Message) AddTool(tool string, args map[string]any) *Part {
	m.Parts = append(m.Parts, Part{
		Type:      PartTool,
		Tool:      tool,
		Args:      args,
		State:     &ToolState{Status: ToolPending},
		Timestamp: time.Now(),
	})
	return &m.Parts[len(m.Parts)-1]
}

// TextContent joins the text of all text parts with newlines.
func (m *Message) TextContent() string {
	var texts []string
	for _, p := range m.Parts {
		if p.Type == PartText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
