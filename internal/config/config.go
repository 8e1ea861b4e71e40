// Package config loads and persists the user-level configuration file.
//
// The config file lives at <config>/config.json and may also be written as
// .json5 or .yaml; all three formats are accepted. Environment variables in
// the raw file are expanded before parsing.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// ModeConfig is a user-defined interaction mode declared in the config file.
type ModeConfig struct {
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Tools        []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	Model        string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// Config is the persisted configuration schema.
type Config struct {
	LogLevel        string                    `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Autoshare       bool                      `json:"autoshare,omitempty" yaml:"autoshare,omitempty"`
	DefaultProvider string                    `json:"default_provider,omitempty" yaml:"default_provider,omitempty"`
	DefaultModel    string                    `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	Providers       map[string]map[string]any `json:"providers,omitempty" yaml:"providers,omitempty"`
	Tools           map[string]map[string]any `json:"tools,omitempty" yaml:"tools,omitempty"`
	Modes           map[string]ModeConfig     `json:"modes,omitempty" yaml:"modes,omitempty"`
	Instructions    []string                  `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

var (
	mu     sync.Mutex
	cached *Config
)

// candidateNames lists accepted config file names in priority order.
var candidateNames = []string{"config.json", "config.json5", "config.yaml", "config.yml"}

// Load returns the cached configuration, reading it from disk on first use.
// A missing file yields the zero config; a malformed file is logged and
// treated as empty rather than aborting startup.
func Load() *Config {
	mu.Lock()
	defer mu.Unlock()
	if cached != nil {
		return cached
	}
	cfg, err := read()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		cfg = &Config{}
	}
	cached = cfg
	return cached
}

// Save writes cfg to <config>/config.json and replaces the cache.
func Save(cfg *Config) error {
	mu.Lock()
	defer mu.Unlock()
	path := filepath.Join(ConfigDir(), "config.json")
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	cached = cfg
	return nil
}

// Update loads the current config, applies fn, and saves the result.
func Update(fn func(*Config)) error {
	cfg := Load()
	fn(cfg)
	return Save(cfg)
}

// ClearCache forces the next Load to re-read from disk.
func ClearCache() {
	mu.Lock()
	defer mu.Unlock()
	cached = nil
}

func read() (*Config, error) {
	for _, name := range candidateNames {
		path := filepath.Join(ConfigDir(), name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return parse(os.ExpandEnv(string(data)), path)
	}
	return &Config{}, nil
}

func parse(data, pathHint string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(pathHint)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", pathHint, err)
		}
	default:
		if err := json5.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", pathHint, err)
		}
	}
	return &cfg, nil
}
