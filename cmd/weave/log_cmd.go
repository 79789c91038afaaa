package main

import (
	"github.com/spf13/cobra"
)

func init() {
	var (
		revisions string
		opts      logOptions
	)
	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show the commits selected by a revset",
		Long: `Evaluates a revset (default: revsets.log) and renders every selected
commit, children before parents, with a template (default: templates.log).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(true)
			if err != nil {
				return err
			}
			v, err := ws.view()
			if err != nil {
				return err
			}
			text := revisions
			if text == "" {
				text = ws.cfg.String("revsets.log", "@")
			}
			rs, err := v.env.CompileString(text)
			if err != nil {
				return err
			}
			return v.render(cmd.Context(), cmd.OutOrStdout(), rs, opts)
		},
	}
	logCmd.Flags().StringVarP(&revisions, "revisions", "r", "", "Revset selecting the commits to show")
	logCmd.Flags().StringVarP(&opts.template, "template", "T", "", "Template rendering each commit")
	logCmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Show at most this many commits")
	logCmd.Flags().StringVar(&opts.color, "color", "", "When to colorize output: always, never or auto")
	rootCmd.AddCommand(logCmd)
}
