package main

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// weave runs the CLI in-process and returns its stdout. Flag values persist
// between runs, so later calls must set every flag they depend on.
func weave(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configOverrides = nil
	logLevel = ""
	repoPath = "."
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// mustWeave is weave for commands that have to succeed.
func mustWeave(t *testing.T, args ...string) string {
	t.Helper()
	out, err := weave(t, args...)
	if err != nil {
		t.Fatalf("weave %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func report(err error) string {
	var b bytes.Buffer
	reportError(&b, err)
	return b.String()
}

func TestCLI(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WEAVE_CONFIG", filepath.Join(home, "config.toml"))
	t.Setenv("NO_COLOR", "1")
	dir := filepath.Join(home, "repo")

	out := mustWeave(t, "init", dir)
	if !strings.Contains(out, "Initialized weave repository") {
		t.Errorf("init output = %q", out)
	}
	if _, err := weave(t, "init", dir); err == nil {
		t.Error("second init succeeded")
	}

	out = mustWeave(t, "-R", dir, "--config", "user.email=ann@example.com", "commit", "-m", "first change")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("commit printed %d lines, want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "(empty) (no description set)") {
		t.Errorf("first line should show the new working copy: %q", lines[0])
	}
	if !strings.Contains(lines[1], "first change") {
		t.Errorf("second line should show the finished commit: %q", lines[1])
	}

	mustWeave(t, "-R", dir, "bookmark", "set", "main", "-r", "parents(@)")
	listed := mustWeave(t, "-R", dir, "bookmark", "list")
	if !strings.HasPrefix(listed, "main: ") {
		t.Errorf("bookmark list = %q", listed)
	}

	t.Run("log", func(t *testing.T) {
		out := mustWeave(t, "-R", dir, "log", "-r", "trunk()", "-T", `description ++ bookmarks ++ "\n"`, "--color", "never")
		if out != "first change\nmain\n" {
			t.Errorf("log trunk() = %q", out)
		}
		out = mustWeave(t, "-R", dir, "log", "-r", "::@", "-T", `if(root, "root", "c") ++ "\n"`, "-n", "2")
		if out != "c\nc\n" {
			t.Errorf("log with limit = %q", out)
		}
		out = mustWeave(t, "-R", dir, "log", "-r", "::@", "-T", `if(selected, "s", "-")`, "-n", "0")
		if out != "sss" {
			t.Errorf("selected over the whole revset = %q", out)
		}
	})

	t.Run("config", func(t *testing.T) {
		if out := mustWeave(t, "-R", dir, "config", "get", "ui.color"); out != "auto\n" {
			t.Errorf("config get ui.color = %q", out)
		}
	})

	t.Run("debug", func(t *testing.T) {
		out := mustWeave(t, "-R", dir, "debug", "template", "builtin_log_oneline")
		if !strings.Contains(out, "parsed:   builtin_log_oneline\n") {
			t.Errorf("debug template = %q", out)
		}
		out = mustWeave(t, "-R", dir, "debug", "revset", "trunk()")
		if !strings.Contains(out, "expanded: latest(") {
			t.Errorf("debug revset = %q", out)
		}
		out = mustWeave(t, "debug", "keywords")
		kws := strings.Fields(out)
		if !sort.StringsAreSorted(kws) {
			t.Errorf("keywords are not sorted: %v", kws)
		}
		for _, want := range []string{"commit_id", "selected", "working_copy"} {
			if !strings.Contains(out, want+"\n") {
				t.Errorf("keywords missing %s:\n%s", want, out)
			}
		}
	})

	t.Run("errors", func(t *testing.T) {
		_, err := weave(t, "-R", dir, "log", "-r", "main |")
		if err == nil {
			t.Fatal("log accepted a truncated revset")
		}
		msg := report(err)
		if !strings.HasPrefix(msg, "Error: ") || !strings.Contains(msg, "  main |\n") || !strings.Contains(msg, "^") {
			t.Errorf("parse error report lacks the marked excerpt:\n%s", msg)
		}

		_, err = weave(t, "-R", dir, "log", "-r", "nosuch")
		if err == nil {
			t.Fatal("log accepted an unknown revision")
		}
		msg = report(err)
		if !strings.HasPrefix(msg, "Error: ") || !strings.Contains(msg, "nosuch") {
			t.Errorf("resolve error report = %q", msg)
		}
	})

	// --allow-backwards keeps its value once set, so this runs last.
	t.Run("bookmark direction", func(t *testing.T) {
		_, err := weave(t, "-R", dir, "bookmark", "set", "main", "-r", "root()")
		if err == nil || !strings.Contains(err.Error(), "backwards") {
			t.Fatalf("moving main to root() = %v, want a backwards error", err)
		}
		mustWeave(t, "-R", dir, "bookmark", "set", "main", "-r", "@")
		mustWeave(t, "-R", dir, "bookmark", "set", "main", "-r", "parents(@)", "--allow-backwards")
		if out := mustWeave(t, "-R", dir, "bookmark", "list"); out != listed {
			t.Errorf("bookmark list = %q, want %q", out, listed)
		}
		mustWeave(t, "-R", dir, "tag", "set", "v1", "-r", "@")
		mustWeave(t, "-R", dir, "tag", "set", "v1", "-r", "root()")
	})
}

func TestCommandsOutsideRepository(t *testing.T) {
	t.Setenv("WEAVE_CONFIG", filepath.Join(t.TempDir(), "config.toml"))

	if _, err := weave(t, "-R", t.TempDir(), "log"); err == nil {
		t.Error("log outside a repository succeeded")
	}

	out := mustWeave(t, "-R", t.TempDir(), "--config", "user.name=Ann", "config", "get", "user.name")
	if out != "Ann\n" {
		t.Errorf("config get user.name = %q", out)
	}
}
