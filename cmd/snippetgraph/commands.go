package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/render"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/runplan"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/session"
)

func newCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the definitions in a catalog",
		Long:  "List every snippet definition in the catalog given by --catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveCatalogPath("", nil)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(path, session.NewStore(logger))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tINPUTS\tOUTPUTS\tPARAMETERS")
			for _, def := range cat.Definitions() {
				var inputs, outputs, params []string
				for _, p := range def.Inputs {
					inputs = append(inputs, p.Name)
				}
				for _, p := range def.Outputs {
					outputs = append(outputs, p.Name)
				}
				for _, p := range def.Parameters {
					params = append(params, p.Name+":"+string(p.Kind))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Name, list(inputs), list(outputs), list(params))
			}
			return tw.Flush()
		},
	}
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}

func newValidateCommand() *cobra.Command {
	var (
		strict      bool
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "validate [project-file]",
		Short: "Check that a project wires together",
		Long: `Apply a project to an empty engine. Fails on unknown definitions or ports,
duplicate pipelines, self connections and cycles. Inputs nothing feeds are
reported, and fail the command with --strict.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(args[0])
			if err != nil {
				return err
			}
			p, err := w.plan()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := w.stats()
			fmt.Fprintf(out, "project %s: %d snippets, %d pipelines, %d edges\n",
				w.file.Name, st.Snippets, st.Pipelines, st.GraphEdges)

			if len(p.Unfed) > 0 {
				fmt.Fprintln(out, "unfed inputs:")
				for _, ref := range p.Unfed {
					fmt.Fprintf(out, "  %s\n", w.label(ref))
				}
			}
			if showMetrics {
				if err := writeMetrics(out, w.registry); err != nil {
					return err
				}
			}

			if strict && !p.Complete() {
				return fmt.Errorf("%d unfed input(s)", len(p.Unfed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when an input is not fed by any pipeline")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print engine metrics after applying the project")

	return cmd
}

// writeMetrics prints every gathered sample as "name{labels} value".
func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			value := metric.GetGauge().GetValue() + metric.GetCounter().GetValue()
			if len(labels) > 0 {
				fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
			} else {
				fmt.Fprintf(w, "%s %g\n", mf.GetName(), value)
			}
		}
	}
	return nil
}

func newPlanCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plan [project-file]",
		Short: "Export the run plan of a project",
		Long:  "Write the run order, parameter values and port map of a project as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(args[0])
			if err != nil {
				return err
			}
			p, err := w.plan()
			if err != nil {
				return err
			}
			data, err := runplan.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to marshal plan: %w", err)
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write plan file %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created plan file: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output plan file (default: stdout)")

	return cmd
}

func newGraphCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph [project-file]",
		Short: "Draw the snippet graph of a project",
		Long:  "Draw the snippet graph of a project as Graphviz DOT or Mermaid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(args[0])
			if err != nil {
				return err
			}
			p, err := w.plan()
			if err != nil {
				return err
			}

			name := w.file.Name
			if name == "" {
				name = "snippets"
			}
			switch strings.ToLower(format) {
			case "dot":
				return render.DOT(cmd.OutOrStdout(), p, name)
			case "mermaid":
				return render.Mermaid(cmd.OutOrStdout(), p)
			default:
				return fmt.Errorf("unknown format %q (want dot or mermaid)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "Output format: dot or mermaid")

	return cmd
}
