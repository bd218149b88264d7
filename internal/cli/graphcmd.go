package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/meridian-data/crossquery/pkg/graph"
)

// newGraphCommand creates the graph command group.
func newGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect and manage the knowledge graph",
	}
	cmd.AddCommand(newGraphInitCommand())
	cmd.AddCommand(newGraphStatsCommand())
	cmd.AddCommand(newGraphValidateCommand())
	cmd.AddCommand(newGraphConceptsCommand())
	return cmd
}

func newGraphInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty knowledge graph document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(cfg.GraphPath); err == nil {
				return fmt.Errorf("graph document %s already exists", cfg.GraphPath)
			}
			g := graph.New()
			if err := g.Save(cfg.GraphPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created empty knowledge graph at %s\n", cfg.GraphPath)
			return nil
		},
	}
}

func newGraphStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge graph counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := loadGraph()
			if err != nil {
				return err
			}
			s := g.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Concepts:        %d\n", s.Concepts)
			fmt.Fprintf(cmd.OutOrStdout(), "Customers:       %d\n", s.Customers)
			fmt.Fprintf(cmd.OutOrStdout(), "Mappings:        %d\n", s.Mappings)
			fmt.Fprintf(cmd.OutOrStdout(), "Transformations: %d\n", s.Transformations)
			return nil
		},
	}
}

func newGraphValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report graph completeness warnings",
		Long: `Check the knowledge graph for coverage gaps: concepts no customer maps,
and customers missing concepts other customers have. Warnings are
advisory; a gap only becomes an error when a query hits it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := loadGraph()
			if err != nil {
				return err
			}
			warnings := g.Validate()
			if len(warnings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No warnings")
				return nil
			}
			for _, w := range warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d warning(s)\n", len(warnings))
			return nil
		},
	}
}

func newGraphConceptsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "concepts",
		Short: "List registered concepts and their customer coverage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := loadGraph()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"id", "name", "canonical type", "customers"})

			for _, c := range g.Concepts() {
				t.AppendRow(table.Row{
					c.ID,
					c.Name,
					string(c.CanonicalType),
					strings.Join(g.CustomersFor(c.ID), ", "),
				})
			}
			t.Render()
			return nil
		},
	}
}
