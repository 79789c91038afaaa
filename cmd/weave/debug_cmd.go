package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"weave/internal/revset"
	"weave/internal/template"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect the revset and template languages",
}

func init() {
	var noResolve bool
	var revsetCmd = &cobra.Command{
		Use:   "revset <expression>",
		Short: "Print a revset as parsed, after alias expansion, and the commits it selects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			expr, err := revset.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "parsed:  ", expr.String())

			ws, err := loadWorkspace(!noResolve)
			if err != nil {
				return err
			}
			aliases, err := ws.cfg.RevsetAliases()
			if err != nil {
				return err
			}
			expanded, err := revset.ExpandAliases(expr, aliases)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "expanded:", expanded.String())
			if noResolve {
				return nil
			}

			v, err := ws.view()
			if err != nil {
				return err
			}
			rs, err := v.env.Compile(expr)
			if err != nil {
				return err
			}
			ids, err := rs.Evaluate(cmd.Context()).IDs()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
	revsetCmd.Flags().BoolVar(&noResolve, "no-resolve", false, "Stop after alias expansion")

	var templateCmd = &cobra.Command{
		Use:   "template <template>",
		Short: "Print a template as parsed and after alias expansion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			expr, err := template.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "parsed:  ", expr.String())

			ws, err := loadWorkspace(false)
			if err != nil {
				return err
			}
			aliases, err := ws.cfg.TemplateAliases()
			if err != nil {
				return err
			}
			expanded, err := template.ExpandAliases(expr, aliases)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "expanded:", expanded.String())
			return nil
		},
	}

	var keywordsCmd = &cobra.Command{
		Use:   "keywords",
		Short: "List the keywords a template can use",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, kw := range template.Keywords() {
				fmt.Fprintln(cmd.OutOrStdout(), kw)
			}
		},
	}

	debugCmd.AddCommand(revsetCmd, templateCmd, keywordsCmd)
	rootCmd.AddCommand(debugCmd)
}
