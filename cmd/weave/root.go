package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"weave/internal/config"
	"weave/internal/diag"
	"weave/internal/logging"
	"weave/internal/repo"
	"weave/internal/revset"
	"weave/internal/store"
	"weave/internal/template"
)

var (
	configOverrides []string
	logLevel        string
	repoPath        string
)

var rootCmd = &cobra.Command{
	Use:   "weave",
	Short: "weave - query and format commit history with revsets and templates",
	Long: `weave selects commits with the revset language and formats them with the
template language. Both languages support user-defined aliases from the
revset-aliases and template-aliases config tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVar(&configOverrides, "config", nil, "Override a config value (key=value), may be repeated")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error or off (default from log.level)")
	rootCmd.PersistentFlags().StringVarP(&repoPath, "repository", "R", ".", "Path inside the repository to operate on")
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

func reportError(w io.Writer, err error) {
	if de, ok := err.(*diag.Error); ok {
		fmt.Fprintln(w, "Error:", de.Show())
		return
	}
	fmt.Fprintln(w, "Error:", err)
	var re *template.RenderError
	if errors.As(err, &re) {
		if ex := re.Excerpt(); ex != "" {
			fmt.Fprintln(w, ex)
		}
		return
	}
	if ex := revset.Excerpt(err); ex != "" {
		fmt.Fprintln(w, ex)
	}
}

// workspace is the per-invocation state: merged config, logger and, inside
// a repository, its store.
type workspace struct {
	root  string
	cfg   *config.Config
	store *store.Store
	log   *slog.Logger
}

// loadWorkspace finds the repository and loads config. Outside a
// repository it fails only when needRepo is set.
func loadWorkspace(needRepo bool) (*workspace, error) {
	root, err := repo.FindRepoRoot(repoPath)
	switch {
	case errors.Is(err, repo.ErrNotFound) && !needRepo:
		root = ""
	case err != nil:
		return nil, err
	}
	cfg, err := config.Load(root, configOverrides)
	if err != nil {
		return nil, err
	}
	level := logLevel
	if level == "" {
		level = cfg.String("log.level", "warn")
	}
	ws := &workspace{
		root: root,
		cfg:  cfg,
		log: logging.New(logging.Options{
			Level:  logging.ParseLevel(level),
			Format: logging.ParseFormat(cfg.String("log.format", "text")),
		}),
	}
	if root != "" {
		ws.store = store.Open(root)
	}
	ws.log.Debug("loaded workspace", "root", root, "overrides", len(configOverrides))
	return ws, nil
}
