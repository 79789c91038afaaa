package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRepo(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("Init Repository", func(t *testing.T) {
		repoPath := filepath.Join(tmpDir, "test-repo")
		if err := InitRepo(repoPath); err != nil {
			t.Fatal(err)
		}

		dirs := []string{
			".weave",
			".weave/commits",
			".weave/refs/bookmarks",
			".weave/refs/tags",
			".weave/config",
		}
		for _, dir := range dirs {
			path := filepath.Join(repoPath, dir)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Errorf("Directory %s not created", dir)
			}
		}
	})

	t.Run("Find Repository Root", func(t *testing.T) {
		repoPath := filepath.Join(tmpDir, "find-repo-test")
		if err := InitRepo(repoPath); err != nil {
			t.Fatal(err)
		}

		nestedPath := filepath.Join(repoPath, "dir1", "dir2", "dir3")
		if err := os.MkdirAll(nestedPath, 0755); err != nil {
			t.Fatal(err)
		}

		found, err := FindRepoRoot(nestedPath)
		if err != nil {
			t.Fatal(err)
		}
		if found != repoPath {
			t.Errorf("Expected root %s, got %s", repoPath, found)
		}

		found, err = FindRepoRoot(repoPath)
		if err != nil {
			t.Fatal(err)
		}
		if found != repoPath {
			t.Errorf("Expected root %s, got %s", repoPath, found)
		}

		nonRepoPath := filepath.Join(tmpDir, "non-repo")
		if err := os.MkdirAll(nonRepoPath, 0755); err != nil {
			t.Fatal(err)
		}
		if _, err := FindRepoRoot(nonRepoPath); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Multiple Init Prevention", func(t *testing.T) {
		repoPath := filepath.Join(tmpDir, "multi-init-test")
		if err := InitRepo(repoPath); err != nil {
			t.Fatal(err)
		}
		if err := InitRepo(repoPath); !errors.Is(err, ErrExists) {
			t.Errorf("Expected ErrExists on second init, got %v", err)
		}
	})

	t.Run("Init with Existing Files", func(t *testing.T) {
		repoPath := filepath.Join(tmpDir, "existing-files-test")
		if err := os.MkdirAll(repoPath, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(repoPath, "test.txt"), []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := InitRepo(repoPath); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(filepath.Join(repoPath, "test.txt")); os.IsNotExist(err) {
			t.Error("Existing file was removed during init")
		}
	})

	t.Run("Dir", func(t *testing.T) {
		got := Dir("/r", "refs", "tags")
		if want := filepath.Join("/r", ".weave", "refs", "tags"); got != want {
			t.Errorf("Dir = %s, want %s", got, want)
		}
	})
}
