// Package cli provides the crossquery command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-data/crossquery/internal/config"
	"github.com/meridian-data/crossquery/internal/engine"
	"github.com/meridian-data/crossquery/pkg/graph"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crossquery",
		Short: "CrossQuery - Semantic Query Compilation Engine",
		Long: `CrossQuery compiles schema-independent semantic query plans into
per-customer SQL, executes them against heterogeneous customer databases,
and harmonizes the results into one canonical answer.

The knowledge graph maps shared business concepts onto each customer's
schema; queries are written once against concepts and run everywhere.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Semantic Query Compilation Engine
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./crossquery.yaml)")
	rootCmd.PersistentFlags().String("graph", "", "Path to the knowledge graph document")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newOnboardCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// loadGraph loads the knowledge graph document named by the config.
func loadGraph() (*graph.Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := graph.New()
	if err := g.Load(cfg.GraphPath); err != nil {
		return nil, err
	}
	return g, nil
}

// newEngine builds the engine from the loaded config and graph.
func newEngine(g *graph.Graph) (*engine.Engine, error) {
	return engine.New(engine.Config{
		Graph:       g,
		Customers:   cfg.AdapterConfigs(),
		Aliases:     cfg.AliasTable(),
		Logger:      logger,
		Concurrency: cfg.Concurrency,
	})
}
