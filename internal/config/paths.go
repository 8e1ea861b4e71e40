package config

import (
	"os"
	"path/filepath"
)

const appDirName = "opencode"

// ConfigDir returns the per-user configuration directory, creating it if
// needed. Falls back to ~/.config/opencode when the platform dir is unknown.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(homeDir(), ".config")
	}
	dir := filepath.Join(base, appDirName)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// DataDir returns the per-user data directory (sessions, credentials).
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		dir := filepath.Join(xdg, appDirName)
		_ = os.MkdirAll(dir, 0o755)
		return dir
	}
	dir := filepath.Join(homeDir(), ".local", "share", appDirName)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// StateDir returns the per-user state directory (logs, caches).
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		dir := filepath.Join(xdg, appDirName)
		_ = os.MkdirAll(dir, 0o755)
		return dir
	}
	dir := filepath.Join(homeDir(), ".local", "state", appDirName)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
