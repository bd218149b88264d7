package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCommand creates the version command.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display CrossQuery version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "CrossQuery v%s (%s)\n", Version, GitCommit)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Semantic Query Compilation Engine")
		},
	}
}
