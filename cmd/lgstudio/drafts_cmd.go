package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/bridge"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/draft"
)

func newDraftsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect local autosaves",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List draft keys and their latest revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDrafts(func(drafts draft.Store) error {
				keys, err := drafts.Keys()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tREVISION\tSAVED\tBYTES")
				for _, k := range keys {
					_, info, err := drafts.Latest(k)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", k, info.Revision, info.Timestamp.Local().Format(time.DateTime), info.Size)
				}
				return tw.Flush()
			})
		},
	})

	var output string
	restore := &cobra.Command{
		Use:   "restore KEY",
		Short: "Write the latest draft of KEY as a workflow file, or YAML to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDrafts(func(drafts draft.Store) error {
				w, _, err := draft.Restore(drafts, args[0])
				if err != nil {
					return err
				}
				if output != "" {
					return bridge.WriteFile(output, w)
				}
				return writeYAML(cmd.OutOrStdout(), bridge.ToFile(w))
			})
		},
	}
	restore.Flags().StringVarP(&output, "output", "o", "", "write to this file (.json or .yaml)")
	cmd.AddCommand(restore)

	cmd.AddCommand(&cobra.Command{
		Use:   "drop KEY",
		Short: "Delete every draft of KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDrafts(func(drafts draft.Store) error {
				return drafts.DeleteKey(args[0])
			})
		},
	})
	return cmd
}

func (a *app) withDrafts(fn func(draft.Store) error) error {
	drafts, err := a.openDrafts()
	if err != nil {
		return err
	}
	defer drafts.Close()
	return fn(drafts)
}
