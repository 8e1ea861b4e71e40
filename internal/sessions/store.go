// Package sessions persists conversations as JSON files under the user
// data directory:
//
//	sessions/<session-id>/info.json
//	sessions/<session-id>/messages/<message-id>.json
//
// Every write goes through a temp file and rename; a partially written
// message is skipped on read rather than repaired.
package sessions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/opencode/internal/config"
	"github.com/haasonsaas/opencode/pkg/models"
)

const maxTitleLen = 50

// Store reads and writes sessions under root/sessions.
type Store struct {
	root string
}

// NewStore returns a store rooted at the user data directory.
func NewStore() *Store {
	return &Store{root: filepath.Join(config.DataDir(), "sessions")}
}

// NewStoreAt returns a store rooted at an explicit directory.
func NewStoreAt(root string) *Store {
	return &Store{root: root}
}

func (s *Store) sessionDir(id string) string {
	return filepath.Join(s.root, id)
}

// Create makes a new session directory tree and writes its info.json.
func (s *Store) Create(mode string) (*models.SessionInfo, error) {
	if mode == "" {
		mode = "default"
	}
	now := time.Now()
	info := &models.SessionInfo{
		ID:      uuid.NewString(),
		Created: now,
		Updated: now,
		Mode:    mode,
	}
	dir := s.sessionDir(info.ID)
	if err := os.MkdirAll(filepath.Join(dir, "messages"), 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "info.json"), info); err != nil {
		return nil, err
	}
	return info, nil
}

// Get loads one session's info. Parse failures are logged and reported as
// not found.
func (s *Store) Get(id string) (*models.SessionInfo, bool) {
	data, err := os.ReadFile(filepath.Join(s.sessionDir(id), "info.json"))
	if err != nil {
		return nil, false
	}
	var info models.SessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		slog.Warn("skipping unreadable session info", "session", id, "error", err)
		return nil, false
	}
	return &info, true
}

// List enumerates sessions ordered by directory mtime, newest first.
func (s *Store) List() ([]*models.SessionInfo, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	type dated struct {
		info  *models.SessionInfo
		mtime time.Time
	}
	var out []dated
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, ok := s.Get(e.Name())
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, dated{info, fi.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].mtime.After(out[j].mtime) })
	infos := make([]*models.SessionInfo, len(out))
	for i, d := range out {
		infos[i] = d.info
	}
	return infos, nil
}

// Delete removes a session and all of its messages. Deleting an unknown
// session is a no-op.
func (s *Store) Delete(id string) error {
	return os.RemoveAll(s.sessionDir(id))
}

// AddMessage persists one message and refreshes the session's info.json:
// message count, updated timestamp, and, if still unset, the title derived
// from the first user message.
func (s *Store) AddMessage(id string, msg *models.Message) error {
	dir := s.sessionDir(id)
	info, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.SessionID = id
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if err := writeJSON(filepath.Join(dir, "messages", msg.ID+".json"), msg); err != nil {
		return err
	}

	msgs, err := s.GetMessages(id)
	if err != nil {
		return err
	}
	info.MessageCount = len(msgs)
	info.Updated = time.Now()
	if info.Title == "" {
		for _, m := range msgs {
			if m.Role == models.RoleUser {
				info.Title = deriveTitle(m.TextContent())
				break
			}
		}
	}
	return writeJSON(filepath.Join(dir, "info.json"), info)
}

// GetMessages loads every message of a session ordered by timestamp.
// Unparseable files are skipped.
func (s *Store) GetMessages(id string) ([]*models.Message, error) {
	dir := filepath.Join(s.sessionDir(id), "messages")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	var msgs []*models.Message
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("skipping unreadable message", "session", id, "file", e.Name(), "error", err)
			continue
		}
		msgs = append(msgs, &msg)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

// Share returns a shareable link for a session. Upload is not implemented;
// the link encodes the session id suffix the way the hosted service does.
func (s *Store) Share(id string) (string, error) {
	if _, ok := s.Get(id); !ok {
		return "", fmt.Errorf("session %s not found", id)
	}
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return "https://opencode.ai/s/" + suffix, nil
}

// deriveTitle turns the first user message into a session title.
func deriveTitle(text string) string {
	title := strings.TrimSpace(text)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen] + "..."
	}
	return title
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
