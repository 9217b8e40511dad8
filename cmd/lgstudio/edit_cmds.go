package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/bridge"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/canvas"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/draft"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/panel"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/store"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// fileSessionKey is the draft key of a workflow file that has no backend ID.
func fileSessionKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file:" + path
}

// editFile loads a workflow file into a fresh store, applies fn through a
// canvas controller and writes the file back. Every change is also recorded
// as a draft, and the drafts are dropped once the file is written.
func (a *app) editFile(path string, fn func(c *canvas.Controller) error) error {
	w, err := bridge.ReadFile(path)
	if err != nil {
		return err
	}
	s := store.NewMemoryStore()
	s.Replace(w)

	drafts, err := a.openDrafts()
	if err != nil {
		a.logger.Warn("drafts disabled", "error", err)
	} else {
		defer drafts.Close()
		rec := draft.NewRecorder(drafts, draft.WithLogger(a.logger), draft.WithSessionKey(fileSessionKey(path)))
		defer rec.Watch(s).Cancel()
	}

	if err := fn(canvas.New(s, canvas.WithLogger(a.logger))); err != nil {
		return err
	}
	if err := bridge.WriteFile(path, s.Workflow()); err != nil {
		return err
	}
	s.MarkClean()
	return nil
}

func newNewCmd(a *app) *cobra.Command {
	var name string
	var force bool
	cmd := &cobra.Command{
		Use:   "new FILE",
		Short: "Start an empty workflow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", args[0])
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			w := workflow.New()
			if name != "" {
				w.Name = name
			}
			return bridge.WriteFile(args[0], w)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "workflow name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newNodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Edit the nodes of a workflow file",
	}
	cmd.AddCommand(newNodeAddCmd(a), newNodeRmCmd(a), newNodeSetCmd(a), newNodeShowCmd(a))
	return cmd
}

func newNodeAddCmd(a *app) *cobra.Command {
	var x, y float64
	var name string
	cmd := &cobra.Command{
		Use:   "add FILE KIND",
		Short: "Add a node and print its ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFile(args[0], func(c *canvas.Controller) error {
				node, ok := c.Drop(args[1], workflow.Position{X: x, Y: y})
				if !ok {
					return fmt.Errorf("node kind is required")
				}
				if name != "" {
					data := node.Data.Clone()
					data.Name = name
					c.UpdateNodeData(node.ID, data)
				}
				fmt.Fprintln(cmd.OutOrStdout(), node.ID)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "canvas x position")
	cmd.Flags().Float64Var(&y, "y", 0, "canvas y position")
	cmd.Flags().StringVar(&name, "name", "", "display name (default: the kind's name)")
	return cmd
}

func newNodeRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm FILE NODE_ID",
		Short: "Remove a node and its edges",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFile(args[0], func(c *canvas.Controller) error {
				if !c.DeleteNode(args[1]) {
					return fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, args[1])
				}
				return nil
			})
		},
	}
}

func newNodeSetCmd(a *app) *cobra.Command {
	var name, description, raw string
	cmd := &cobra.Command{
		Use:   "set FILE NODE_ID [key=value ...]",
		Short: "Change a node's name, description or configuration",
		Long: "Change a node's name, description or configuration. key=value pairs " +
			"set declared fields; --raw replaces the whole configuration with a JSON object.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFile(args[0], func(c *canvas.Controller) error {
				p := panel.New(c)
				form, err := p.Open(args[1])
				if err != nil {
					return err
				}
				defer p.Close()

				if cmd.Flags().Changed("name") {
					form.Name = name
				}
				if cmd.Flags().Changed("description") {
					form.Description = description
				}
				for _, pair := range args[2:] {
					k, v, ok := strings.Cut(pair, "=")
					if !ok {
						return fmt.Errorf("%q: want key=value", pair)
					}
					if err := form.Set(k, v); err != nil {
						return err
					}
				}

				if raw != "" {
					_, err = form.ApplyRawJSON(raw)
				} else {
					_, err = form.Apply()
				}
				return err
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "display name")
	f.StringVar(&description, "description", "", "description")
	f.StringVar(&raw, "raw", "", "configuration as a JSON object")
	return cmd
}

func newNodeShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE NODE_ID",
		Short: "Show a node's configuration form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := bridge.ReadFile(args[0])
			if err != nil {
				return err
			}
			s := store.NewMemoryStore()
			s.Replace(w)
			form, err := panel.New(canvas.New(s)).Open(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\nname: %s\n", form.NodeID(), form.Kind(), form.Name)
			if form.Description != "" {
				fmt.Fprintf(out, "description: %s\n", form.Description)
			}
			if len(form.Fields) > 0 {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "\nFIELD\tLABEL\tKIND\tVALUE")
				for _, ff := range form.Fields {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ff.Key, ff.Label, ff.Kind, ff.Value)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			rawJSON, err := form.RawJSON()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nconfig:\n%s\n", rawJSON)
			return nil
		},
	}
}

func newConnectCmd(a *app) *cobra.Command {
	var sourceHandle, targetHandle string
	cmd := &cobra.Command{
		Use:   "connect FILE SOURCE_ID TARGET_ID",
		Short: "Add an edge and print its ID",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFile(args[0], func(c *canvas.Controller) error {
				edge, ok := c.Connect(canvas.Connection{
					Source:       args[1],
					Target:       args[2],
					SourceHandle: sourceHandle,
					TargetHandle: targetHandle,
				})
				if !ok {
					nodes := c.Store().Workflow().Nodes
					if workflow.NodeIndex(nodes, args[1]) >= 0 && workflow.NodeIndex(nodes, args[2]) >= 0 {
						return fmt.Errorf("edge %s -> %s: id already taken, retry", args[1], args[2])
					}
					return fmt.Errorf("%w: %s -> %s", workflow.ErrNodeNotFound, args[1], args[2])
				}
				suffix := ""
				if edge.IsBackEdge {
					suffix = " (back edge)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", edge.ID, suffix)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sourceHandle, "source-handle", "", "source handle")
	cmd.Flags().StringVar(&targetHandle, "target-handle", "", "target handle")
	return cmd
}

func newEdgeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Edit the edges of a workflow file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm FILE EDGE_ID",
		Short: "Remove an edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editFile(args[0], func(c *canvas.Controller) error {
				if !c.DeleteEdge(args[1]) {
					return fmt.Errorf("edge %s not found", args[1])
				}
				return nil
			})
		},
	})
	return cmd
}
