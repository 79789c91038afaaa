package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"weave/internal/gitimport"
)

func init() {
	var importCmd = &cobra.Command{
		Use:   "import <git-repo-path>",
		Short: "Import commits, branches and tags from a git repository",
		Long: `Copies every commit of the git repository into this repository. Git commit
hashes become commit ids, branches become bookmarks and tags stay tags.
Importing again updates refs and skips nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(true)
			if err != nil {
				return err
			}
			stats, err := gitimport.Import(cmd.Context(), args[0], ws.store, ws.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d commits, %d bookmarks, %d tags\n", stats.Commits, stats.Bookmarks, stats.Tags)
			return nil
		},
	}
	var gitCmd = &cobra.Command{
		Use:   "git",
		Short: "Interoperate with git repositories",
	}
	gitCmd.AddCommand(importCmd)
	rootCmd.AddCommand(gitCmd)
}
