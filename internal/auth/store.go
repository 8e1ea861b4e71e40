// Package auth manages stored provider credentials and the GitHub device
// authorization flow used to obtain Copilot tokens.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/haasonsaas/opencode/internal/config"
)

// CredentialType distinguishes stored credential kinds.
type CredentialType string

const (
	CredentialOAuth  CredentialType = "oauth"
	CredentialAPIKey CredentialType = "api"
)

// Credential is one stored provider credential. OAuth credentials carry
// Refresh/Access/Expires (epoch milliseconds); API-key credentials carry Key.
type Credential struct {
	Type    CredentialType `json:"type"`
	Refresh string         `json:"refresh,omitempty"`
	Access  string         `json:"access,omitempty"`
	Expires int64          `json:"expires,omitempty"`
	Key     string         `json:"key,omitempty"`
}

// Store reads and writes credentials keyed by provider ID in a single
// auth.json file. The file is created with mode 0600 and replaced
// atomically on every write.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a store backed by <data>/auth.json.
func NewStore() *Store {
	return &Store{path: filepath.Join(config.DataDir(), "auth.json")}
}

// NewStoreAt returns a store backed by an explicit file path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Get returns the credential for a provider, or ok=false when absent.
func (s *Store) Get(provider string) (Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return Credential{}, false, err
	}
	cred, ok := all[provider]
	return cred, ok, nil
}

// All returns every stored credential keyed by provider ID.
func (s *Store) All() (map[string]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Set stores or replaces the credential for a provider.
func (s *Store) Set(provider string, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}
	all[provider] = cred
	return s.save(all)
}

// Remove deletes the credential for a provider. Removing an absent
// provider is not an error.
func (s *Store) Remove(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}
	delete(all, provider)
	return s.save(all)
}

func (s *Store) load() (map[string]Credential, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]Credential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var all map[string]Credential
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if all == nil {
		all = map[string]Credential{}
	}
	return all, nil
}

func (s *Store) save(all map[string]Credential) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
