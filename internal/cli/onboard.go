package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-data/crossquery/pkg/graph"
)

// newOnboardCommand creates the onboard command: validate a YAML mapping
// proposal against the customer's live schema and install what passes.
func newOnboardCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "onboard <proposal.yaml>",
		Short: "Validate and install a customer mapping proposal",
		Long: `Read a YAML mapping proposal, check every proposed mapping against the
customer's live schema (tables, columns, join paths, timestamp columns),
install the mappings that pass, and save the updated graph. Rejected
mappings are reported and skipped; they never block the batch.`,
		Example: `  # Validate only
  crossquery onboard acme-mappings.yaml --dry-run

  # Validate and install
  crossquery onboard acme-mappings.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read proposal: %w", err)
			}
			proposal, err := graph.ParseProposal(data)
			if err != nil {
				return err
			}

			g, err := loadGraph()
			if err != nil {
				return err
			}
			eng, err := newEngine(g)
			if err != nil {
				return err
			}

			result, err := eng.Onboard(cmd.Context(), proposal, dryRun)
			if err != nil {
				return err
			}

			for _, problem := range result.Rejected {
				fmt.Fprintf(cmd.OutOrStdout(), "rejected: %s\n", problem)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d mapping(s) validated for customer %s, %d rejected\n",
				len(result.Installed), result.CustomerID, len(result.Rejected))

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "dry run: graph not modified")
				return nil
			}
			if len(result.Installed) > 0 {
				if err := g.Save(cfg.GraphPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", cfg.GraphPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without modifying the graph")
	return cmd
}
