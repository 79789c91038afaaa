package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"weave/internal/config"
	"weave/internal/repo"
	"weave/internal/store"
)

func init() {
	var initCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Initialize a new weave repository",
		Long: `Creates a .weave directory holding commit objects, bookmark and tag refs and
the repository config, with an empty working-copy commit on top of the root.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			if err := repo.InitRepo(abs); err != nil {
				return err
			}
			cfg, err := config.Load(abs, configOverrides)
			if err != nil {
				return err
			}
			sig := store.Signature(cfg.String("user.name", ""), cfg.String("user.email", ""), time.Now())
			wc, err := store.Open(abs).Init(sig)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized weave repository at %s\nWorking copy: %s\n", abs, wc.ChangeID[:12])
			return nil
		},
	}
	rootCmd.AddCommand(initCmd)
}
