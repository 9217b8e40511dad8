package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/bridge"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/nodetype"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/store"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

func newNodeTypesCmd(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "node-types",
		Short: "List node kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs := nodetype.All()
			if remote {
				var err error
				specs, err = a.bridge(store.NewMemoryStore()).NodeTypes(cmd.Context())
				if err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tNAME\tCATEGORY\tCYCLES\tFIELDS")
			for _, s := range specs {
				keys := make([]string, len(s.Fields))
				for i, f := range s.Fields {
					keys[i] = f.Key
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", s.Kind, s.Name, s.Category, s.SupportsCycle, strings.Join(keys, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "fetch the catalog from the backend")
	return cmd
}

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List preset workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			templates, err := a.bridge(store.NewMemoryStore()).Templates(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tNODES\tDESCRIPTION")
			for _, t := range templates {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.ID, t.Name, len(t.Data.Nodes), t.Description)
			}
			return tw.Flush()
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty workflow on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.NewMemoryStore()
			b := a.bridge(s)
			b.NewWorkflow(args[0])
			s.SetWorkflowMeta("", args[0], description)
			if _, err := b.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Workflow().ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "workflow description")
	return cmd
}

func newCreateFromTemplateCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-from-template TEMPLATE_ID",
		Short: "Create a workflow from a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.bridge(store.NewMemoryStore()).CreateFromTemplate(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the new workflow (default: the template's)")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "get ID",
		Aliases: []string{"export"},
		Short:   "Fetch a workflow as YAML, or write it to a file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.NewMemoryStore()
			b := a.bridge(s)
			if err := b.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			if output != "" {
				return b.Export(output)
			}
			return writeYAML(cmd.OutOrStdout(), bridge.ToFile(s.Workflow()))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file (.json or .yaml)")
	return cmd
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func newImportCmd(a *app) *cobra.Command {
	var asNew bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Save a workflow file to the backend",
		Long: "Save a workflow file to the backend. A file carrying an id updates " +
			"that workflow; without one, or with --as-new, a new workflow is created.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.NewMemoryStore()
			b := a.bridge(s)
			if err := b.Import(args[0], asNew); err != nil {
				return err
			}
			if _, err := b.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Workflow().ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asNew, "as-new", false, "ignore the file's id and create a new workflow")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client().Delete(cmd.Context(), args[0])
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	var file string
	var local bool
	cmd := &cobra.Command{
		Use:   "validate [ID]",
		Short: "Lint a workflow locally and on the backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (len(args) == 0) {
				return fmt.Errorf("give either a workflow ID or --file")
			}

			s := store.NewMemoryStore()
			b := a.bridge(s)
			if file != "" {
				w, err := bridge.ReadFile(file)
				if err != nil {
					return err
				}
				s.Replace(w)
			} else if err := b.Load(cmd.Context(), args[0]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report := workflow.Validate(s.Workflow())
			printReport(out, "local", report)
			if !local {
				remote, err := b.Validate(cmd.Context())
				if err != nil {
					return err
				}
				printReport(out, "backend", remote)
				report.Valid = report.Valid && remote.Valid
			}
			if !report.Valid {
				return fmt.Errorf("workflow is not valid")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "validate a workflow file instead of a stored workflow")
	cmd.Flags().BoolVar(&local, "local", false, "skip the backend check")
	return cmd
}

func printReport(w io.Writer, source string, r workflow.Report) {
	status := "valid"
	if !r.Valid {
		status = "invalid"
	}
	fmt.Fprintf(w, "%s: %s\n", source, status)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}
