package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"weave/internal/graph"
	"weave/internal/store"
)

// refCommand builds the set/list/delete subcommands shared by bookmarks and
// tags.
func refCommand(kind store.RefKind, use, short string) *cobra.Command {
	var revision string
	var allowBackwards bool
	var setCmd = &cobra.Command{
		Use:   "set <name>...",
		Short: fmt.Sprintf("Point %s at a revision", kind),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(true)
			if err != nil {
				return err
			}
			v, err := ws.view()
			if err != nil {
				return err
			}
			target, err := v.resolveOne(cmd.Context(), revision)
			if err != nil {
				return err
			}
			for _, name := range args {
				if kind == store.Bookmarks && !allowBackwards {
					if err := checkForward(v, name, target.ID); err != nil {
						return err
					}
				}
				if err := ws.store.SetRef(kind, name, target.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, shortID(target.ID))
			}
			return nil
		},
	}
	setCmd.Flags().StringVarP(&revision, "revision", "r", "@", "Revision to point at")
	if kind == store.Bookmarks {
		setCmd.Flags().BoolVarP(&allowBackwards, "allow-backwards", "B", false, "Allow moving a bookmark to a commit that does not descend from its target")
	}

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(true)
			if err != nil {
				return err
			}
			refs, err := ws.store.ListRefs(kind)
			if err != nil {
				return err
			}
			names, err := ws.store.RefNames(kind)
			if err != nil {
				return err
			}
			for _, name := range names {
				ids := make([]string, len(refs[name]))
				for i, id := range refs[name] {
					ids[i] = shortID(id)
				}
				suffix := ""
				if len(ids) > 1 {
					suffix = " (conflicted)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s%s\n", name, strings.Join(ids, ", "), suffix)
			}
			return nil
		},
	}

	var deleteCmd = &cobra.Command{
		Use:   "delete <name>...",
		Short: fmt.Sprintf("Delete %s", kind),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(true)
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := ws.store.DeleteRef(kind, name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	var refCmd = &cobra.Command{
		Use:   use,
		Short: short,
	}
	refCmd.AddCommand(setCmd, listCmd, deleteCmd)
	return refCmd
}

// checkForward rejects moving an existing bookmark to a commit that is not
// a descendant of its current target. Conflicted bookmarks may move freely.
func checkForward(v *view, name string, to graph.CommitID) error {
	old := v.symbols.Bookmarks[name]
	if len(old) != 1 {
		return nil
	}
	from, ok := v.index.Position(old[0])
	if !ok {
		return nil
	}
	dest, ok := v.index.Position(to)
	if ok && v.index.IsAncestor(from, dest) {
		return nil
	}
	return fmt.Errorf("refusing to move bookmark %q backwards or sideways from %s to %s (use --allow-backwards)", name, shortID(old[0]), shortID(to))
}

func shortID(id graph.CommitID) string {
	if len(id) > 12 {
		return string(id[:12])
	}
	return string(id)
}

func init() {
	rootCmd.AddCommand(
		refCommand(store.Bookmarks, "bookmark", "Manage bookmarks"),
		refCommand(store.Tags, "tag", "Manage tags"),
	)
}
