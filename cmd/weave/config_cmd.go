package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"weave/internal/config"
	"weave/internal/repo"
)

var cfgGlobal bool

func init() {
	var setCmd = &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config key (repo-level by default, or --global)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, val := args[0], args[1]

			if cfgGlobal {
				return config.SetGlobalConfigValue(key, val)
			}
			rp, err := repo.FindRepoRoot(repoPath)
			if errors.Is(err, repo.ErrNotFound) {
				return config.SetGlobalConfigValue(key, val)
			}
			if err != nil {
				return err
			}
			return config.SetRepoConfigValue(rp, key, val)
		},
	}
	setCmd.Flags().BoolVar(&cfgGlobal, "global", false, "Set global config instead of repo-level")

	var getCmd = &cobra.Command{
		Use:   "get <key>",
		Short: "Get a config value (repo-level overrides global, --config overrides both)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(false)
			if err != nil {
				return err
			}
			v, err := ws.cfg.Lookup(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List every config value after layering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(false)
			if err != nil {
				return err
			}
			for _, line := range ws.cfg.List() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage weave configuration",
	}

	configCmd.AddCommand(setCmd, getCmd, listCmd)
	rootCmd.AddCommand(configCmd)
}
