package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/config"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/monitor"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/store"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// parseInputs merges an optional YAML/JSON inputs file ("-" for stdin) with
// key=value pairs. Pairs win over the file.
func parseInputs(file string, stdin io.Reader, pairs []string) (map[string]any, error) {
	inputs := map[string]any{}
	if file != "" {
		cfg, err := config.LoadInputs(file, stdin)
		if err != nil {
			return nil, err
		}
		maps.Copy(inputs, cfg.Raw())
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("input %q: want key=value", p)
		}
		inputs[k] = v
	}
	return inputs, nil
}

func newRunCmd(a *app) *cobra.Command {
	var (
		stream     bool
		inputFile  string
		inputPairs []string
	)
	cmd := &cobra.Command{
		Use:   "run ID",
		Short: "Save and execute a workflow, then show the timeline and state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := parseInputs(inputFile, cmd.InOrStdin(), inputPairs)
			if err != nil {
				return err
			}

			s := store.NewMemoryStore()
			b := a.bridge(s)
			if err := b.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if stream {
				sub := s.Subscribe(eventPrinter(out))
				err = b.RunStream(cmd.Context(), inputs)
				sub.Cancel()
			} else {
				_, err = b.Run(cmd.Context(), inputs)
				if rerr := monitor.RenderTimeline(out, monitor.Timeline(s.Snapshot().Run.StreamEvents)); rerr != nil {
					return rerr
				}
			}

			run := s.Snapshot().Run
			fmt.Fprintf(out, "\nthread: %s\n\n", run.ThreadID)
			if rerr := monitor.RenderInspector(out, monitor.Inspect(run)); rerr != nil {
				return rerr
			}
			if b.Paused() {
				fmt.Fprintf(out, "\npaused before %s; continue with: lgstudio resume %s --thread %s --feedback ...\n",
					strings.Join(run.StateData.NextNodes, ", "), args[0], run.ThreadID)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.BoolVar(&stream, "stream", false, "stream events as they happen")
	f.StringVar(&inputFile, "inputs", "", "YAML or JSON file of run inputs, - for stdin")
	f.StringArrayVarP(&inputPairs, "input", "i", nil, "run input as key=value (repeatable)")
	return cmd
}

// eventPrinter prints events appended since the last call, one per line.
func eventPrinter(w io.Writer) func(store.State) {
	var seen int
	return func(st store.State) {
		events := st.Run.StreamEvents
		if len(events) < seen {
			seen = 0
		}
		for _, e := range monitor.Timeline(events[seen:]).Entries {
			fmt.Fprintf(w, "%s  %-14s %-20s %s\n", monitor.Clock(e.Time), e.EventType, e.NodeID, e.Label)
		}
		seen = len(events)
	}
}

func newResumeCmd(a *app) *cobra.Command {
	var thread, feedback, nodeData string
	cmd := &cobra.Command{
		Use:   "resume ID",
		Short: "Continue a paused thread with human feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data map[string]any
			if nodeData != "" {
				if err := json.Unmarshal([]byte(nodeData), &data); err != nil {
					return fmt.Errorf("--node-data: %w", err)
				}
			}

			s := store.NewMemoryStore()
			b := a.bridge(s)
			if err := b.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			s.SetThreadID(thread)

			res, err := b.Resume(cmd.Context(), feedback, data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %s\noutput: %s\n\n", res.Status, monitor.Preview(res.Output))
			return monitor.RenderInspector(out, monitor.Inspect(s.Snapshot().Run))
		},
	}
	f := cmd.Flags()
	f.StringVar(&thread, "thread", "", "thread to resume")
	f.StringVar(&feedback, "feedback", "", "human feedback text")
	f.StringVar(&nodeData, "node-data", "", "extra node data as a JSON object")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func newStateCmd(a *app) *cobra.Command {
	var thread string
	cmd := &cobra.Command{
		Use:   "state ID",
		Short: "Show the latest state of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.NewMemoryStore()
			s.SetWorkflowMeta(args[0], workflow.DefaultName, "")
			s.SetThreadID(thread)
			b := a.bridge(s)

			snap, err := b.RefreshState(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := monitor.RenderInspector(out, monitor.Inspect(s.Snapshot().Run)); err != nil {
				return err
			}
			if len(snap.NextNodes) > 0 {
				fmt.Fprintf(out, "\nnext: %s\n", strings.Join(snap.NextNodes, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&thread, "thread", "", "thread to inspect (default: the backend's default thread)")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var thread string
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "List the checkpoints of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.NewMemoryStore()
			s.SetWorkflowMeta(args[0], workflow.DefaultName, "")
			s.SetThreadID(thread)

			checkpoints, err := a.bridge(s).History(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHECKPOINT\tTHREAD\tNEXT\tCREATED")
			for _, c := range checkpoints {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.CheckpointID, c.ThreadID, strings.Join(c.NextNodes, ","), c.CreatedAt)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&thread, "thread", "", "thread to list (default: the backend's default thread)")
	return cmd
}
