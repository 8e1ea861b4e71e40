package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreAt(filepath.Join(t.TempDir(), "auth.json"))
}

func TestStoreSetGet(t *testing.T) {
	s := newTestStore(t)

	cred := Credential{Type: CredentialAPIKey, Key: "sk-test"}
	if err := s.Set("anthropic", cred); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := s.Get("anthropic")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("credential not found")
	}
	if got.Type != CredentialAPIKey || got.Key != "sk-test" {
		t.Errorf("unexpected credential: %+v", got)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("openai")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing provider")
	}
}

func TestStoreRemove(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("github-copilot", Credential{Type: CredentialOAuth, Refresh: "gho_x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("github-copilot"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := s.Get("github-copilot"); ok {
		t.Error("credential still present after Remove")
	}

	// Removing an unknown provider is a no-op.
	if err := s.Remove("nope"); err != nil {
		t.Errorf("Remove unknown: %v", err)
	}
}

func TestStoreFileMode(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("openai", Credential{Type: CredentialAPIKey, Key: "k"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("auth.json mode = %o, want 600", perm)
	}
}

func TestStoreAllAndPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	s := NewStoreAt(path)

	if err := s.Set("a", Credential{Type: CredentialAPIKey, Key: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("b", Credential{Type: CredentialOAuth, Refresh: "2"}); err != nil {
		t.Fatal(err)
	}

	// A fresh store reading the same file sees both entries.
	all, err := NewStoreAt(path).All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 || all["a"].Key != "1" || all["b"].Refresh != "2" {
		t.Errorf("unexpected contents: %+v", all)
	}
}
