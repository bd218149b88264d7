package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-data/crossquery/pkg/core"
)

// newCompileCommand creates the compile command: compile a plan without
// executing it, to inspect the SQL each customer would receive.
func newCompileCommand() *cobra.Command {
	var customerID string

	cmd := &cobra.Command{
		Use:   "compile <plan.json>",
		Short: "Compile a semantic query plan to per-customer SQL",
		Long: `Compile a semantic query plan for every configured customer (or one
customer with --customer) and print the parameterized SQL without
executing anything.`,
		Example: `  # Compile for all customers
  crossquery compile plan.json

  # Compile for one customer
  crossquery compile plan.json --customer acme`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := readPlan(args[0])
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

			var queries []CustomerQueryOutput
			if customerID != "" {
				cq, err := eng.Compile(plan, customerID)
				queries = append(queries, newQueryOutput(customerID, cq, err))
			} else {
				for _, r := range eng.CompileAll(plan) {
					queries = append(queries, newQueryOutput(r.CustomerID, r.Query, r.Err))
				}
			}

			if cfg.Output == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(queries)
			}
			for _, q := range queries {
				fmt.Fprintf(cmd.OutOrStdout(), "-- customer: %s\n", q.CustomerID)
				if q.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "-- error: %s\n\n", q.Error)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), q.SQL)
				fmt.Fprintf(cmd.OutOrStdout(), "-- params: %v\n\n", q.Params)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Compile for a single customer")
	return cmd
}

// CustomerQueryOutput is the JSON shape of one customer's compilation.
type CustomerQueryOutput struct {
	CustomerID string             `json:"customer_id"`
	SQL        string             `json:"sql,omitempty"`
	Params     []any              `json:"params,omitempty"`
	Fields     []core.OutputField `json:"fields,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func newQueryOutput(customerID string, cq *core.CompiledQuery, err error) CustomerQueryOutput {
	out := CustomerQueryOutput{CustomerID: customerID}
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.SQL = cq.SQL
	out.Params = cq.Params
	out.Fields = cq.Fields
	return out
}

// readPlan decodes a semantic query plan from a JSON file.
func readPlan(path string) (*core.SemanticQueryPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var plan core.SemanticQueryPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", path, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return &plan, nil
}
