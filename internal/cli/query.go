package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/meridian-data/crossquery/pkg/core"
)

// newQueryCommand creates the query command: compile, execute, and
// harmonize a plan across every configured customer.
func newQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <plan.json>",
		Short: "Run a semantic query plan across all customers",
		Long: `Compile the plan for every configured customer, execute the compiled
queries in parallel, and print the harmonized records plus a per-customer
outcome summary. A customer whose query fails is reported in the summary
and contributes no records; the rest still answer.`,
		Example: `  # Run a plan, table output
  crossquery query plan.json

  # JSON output for downstream tooling
  crossquery query plan.json -o json`,
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

			result, err := eng.Query(cmd.Context(), plan)
			if err != nil {
				return err
			}

			if cfg.Output == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			renderRecords(cmd.OutOrStdout(), result.Records)
			renderOutcomes(cmd.OutOrStdout(), result.Outcomes)
			return nil
		},
	}
	return cmd
}

// renderRecords prints harmonized records as a table, one column per
// canonical field plus the owning customer. Flagged values are marked.
func renderRecords(w io.Writer, records []core.HarmonizedRecord) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 records)")
		return
	}

	// Stable column order across all records.
	seen := make(map[string]struct{})
	var cols []string
	for _, rec := range records {
		for name := range rec.Values {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				cols = append(cols, name)
			}
		}
	}
	sort.Strings(cols)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(cols)+1)
	header = append(header, "customer")
	for _, c := range cols {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for _, rec := range records {
		row := make(table.Row, 0, len(cols)+1)
		row = append(row, rec.CustomerID)
		for _, c := range cols {
			row = append(row, formatHarmonized(rec.Values[c]))
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d records)\n", len(records))
}

func formatHarmonized(v core.HarmonizedValue) string {
	s := formatValue(v.Normalized)
	if v.Flagged {
		return s + " (!)"
	}
	return s
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%g", n)
	case time.Time:
		return n.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("%v", v)
}

// renderOutcomes prints the per-customer success tally.
func renderOutcomes(w io.Writer, outcomes []core.CustomerOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"customer", "status", "rows", "elapsed", "error"})

	for _, o := range outcomes {
		status := "ok"
		if !o.Succeeded {
			status = "failed"
		}
		t.AppendRow(table.Row{
			o.CustomerID,
			status,
			o.Rows,
			o.Elapsed.Round(time.Millisecond),
			o.Err,
		})
	}
	t.Render()
}
