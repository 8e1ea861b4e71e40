// Package workspace resolves the project root and basic repository facts
// for the directory the agent operates in.
package workspace

import (
	"os"
	"path/filepath"
)

// Info describes the resolved workspace.
type Info struct {
	// Cwd is the directory the agent was started in.
	Cwd string
	// Root is the git repository root containing Cwd, or Cwd itself when
	// not inside a repository.
	Root string
	// Git reports whether Cwd is inside a git repository.
	Git bool
}

// Resolve inspects cwd and walks up looking for a .git directory.
func Resolve(cwd string) (*Info, error) {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return nil, err
	}
	info := &Info{Cwd: abs, Root: abs}
	for dir := abs; ; {
		if fi, err := os.Stat(filepath.Join(dir, ".git")); err == nil && fi.IsDir() {
			info.Root = dir
			info.Git = true
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return info, nil
}

// FindUp returns the first path named filename found walking up from start
// to the filesystem root, or "".
func FindUp(filename, start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, filename)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
