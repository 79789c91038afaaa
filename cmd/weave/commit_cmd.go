package main

import (
	"time"

	"github.com/spf13/cobra"

	"weave/internal/revset"
	"weave/internal/store"
)

func init() {
	var message string
	var commitCmd = &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Describe the working-copy commit and start a new one on top",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(true)
			if err != nil {
				return err
			}
			sig := store.Signature(ws.cfg.String("user.name", ""), ws.cfg.String("user.email", ""), time.Now())
			done, next, err := ws.store.Commit(message, sig)
			if err != nil {
				return err
			}
			ws.log.Info("committed", "commit", done.ID, "working_copy", next.ID)

			v, err := ws.view()
			if err != nil {
				return err
			}
			rs, err := v.env.Compile(revset.Commits(next.ID, done.ID))
			if err != nil {
				return err
			}
			return v.render(cmd.Context(), cmd.OutOrStdout(), rs, logOptions{template: "builtin_log_oneline"})
		},
	}
	commitCmd.Flags().StringVarP(&message, "message", "m", "", "Commit description")
	if err := commitCmd.MarkFlagRequired("message"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(commitCmd)
}
