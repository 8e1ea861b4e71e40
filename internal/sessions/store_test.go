package sessions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/opencode/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreAt(filepath.Join(t.TempDir(), "sessions"))
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	info, err := s.Create("review")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.ID == "" || info.Mode != "review" || info.MessageCount != 0 {
		t.Errorf("unexpected info: %+v", info)
	}

	got, ok := s.Get(info.ID)
	if !ok {
		t.Fatal("session not found after create")
	}
	if got.ID != info.ID || got.Mode != "review" {
		t.Errorf("reloaded info mismatch: %+v", got)
	}
}

func TestGetMissingSession(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Get("nope"); ok {
		t.Error("expected ok=false")
	}
}

func TestAddMessageUpdatesInfo(t *testing.T) {
	s := newTestStore(t)
	info, err := s.Create("default")
	if err != nil {
		t.Fatal(err)
	}

	first := &models.Message{Role: models.RoleUser, Timestamp: time.Now()}
	first.AddText("Fix the race condition in the scheduler please")
	if err := s.AddMessage(info.ID, first); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	second := &models.Message{Role: models.RoleAssistant, Timestamp: time.Now().Add(time.Second)}
	second.AddText("Looking into it.")
	if err := s.AddMessage(info.ID, second); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Get(info.ID)
	if !ok {
		t.Fatal("session missing")
	}
	if got.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", got.MessageCount)
	}
	if got.Title != "Fix the race condition in the scheduler please" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Updated.Before(got.Created) {
		t.Error("Updated before Created")
	}

	msgs, err := s.GetMessages(info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[1].Role != models.RoleAssistant {
		t.Errorf("messages out of order: %v, %v", msgs[0].Role, msgs[1].Role)
	}
}

func TestTitleTruncation(t *testing.T) {
	s := newTestStore(t)
	info, _ := s.Create("default")

	long := strings.Repeat("refactor the entire provider layer ", 5)
	msg := &models.Message{Role: models.RoleUser, Timestamp: time.Now()}
	msg.AddText(long)
	if err := s.AddMessage(info.ID, msg); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get(info.ID)
	if len(got.Title) != maxTitleLen+3 || !strings.HasSuffix(got.Title, "...") {
		t.Errorf("Title = %q (len %d)", got.Title, len(got.Title))
	}
}

func TestListOrdersByMtimeDescending(t *testing.T) {
	s := newTestStore(t)
	older, _ := s.Create("default")
	newer, _ := s.Create("default")

	past := time.Now().Add(-time.Hour)
	os.Chtimes(filepath.Join(s.root, older.ID), past, past)

	infos, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d sessions", len(infos))
	}
	if infos[0].ID != newer.ID || infos[1].ID != older.ID {
		t.Errorf("order = [%s %s], want newest first", infos[0].ID, infos[1].ID)
	}
}

func TestListEmptyStore(t *testing.T) {
	s := newTestStore(t)
	infos, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Errorf("got %d sessions from empty store", len(infos))
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	info, _ := s.Create("default")

	if err := s.Delete(info.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(info.ID); ok {
		t.Error("session still present after delete")
	}
	if err := s.Delete(info.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestCorruptMessageSkipped(t *testing.T) {
	s := newTestStore(t)
	info, _ := s.Create("default")

	msg := &models.Message{Role: models.RoleUser, Timestamp: time.Now()}
	msg.AddText("hello")
	if err := s.AddMessage(info.ID, msg); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(s.root, info.ID, "messages", "broken.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.GetMessages(info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Errorf("got %d messages, want the valid one only", len(msgs))
	}
}

func TestShareLink(t *testing.T) {
	s := newTestStore(t)
	info, _ := s.Create("default")

	link, err := s.Share(info.ID)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if !strings.HasPrefix(link, "https://opencode.ai/s/") {
		t.Errorf("link = %q", link)
	}
	if !strings.HasSuffix(link, info.ID[len(info.ID)-8:]) {
		t.Errorf("link suffix mismatch: %q", link)
	}

	if _, err := s.Share("missing"); err == nil {
		t.Error("expected error for unknown session")
	}
}
