package repo

import (
	"errors"
	"os"
	"path/filepath"
)

const WeaveDir = ".weave"

// ErrExists is returned by InitRepo when path already holds a repository.
var ErrExists = errors.New("weave repository already exists here")

// ErrNotFound is returned by FindRepoRoot outside a repository.
var ErrNotFound = errors.New("no weave repository found (run `weave init`)")

// Dir returns path's .weave directory joined with elem.
func Dir(path string, elem ...string) string {
	return filepath.Join(append([]string{path, WeaveDir}, elem...)...)
}

// InitRepo creates the .weave folder structure: commit objects, bookmark and
// tag refs, and the repository config directory.
func InitRepo(path string) error {
	if _, err := os.Stat(Dir(path)); err == nil {
		return ErrExists
	}

	dirs := []string{
		Dir(path),
		Dir(path, "commits"),
		Dir(path, "refs", "bookmarks"),
		Dir(path, "refs", "tags"),
		Dir(path, "config"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// FindRepoRoot searches for .weave directory walking up from start
func FindRepoRoot(start string) (string, error) {
	cur, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if fi, err := os.Stat(filepath.Join(cur, WeaveDir)); err == nil && fi.IsDir() {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", ErrNotFound
		}
		cur = parent
	}
}
