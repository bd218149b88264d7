// Package harmonize converts raw per-customer query results into
// canonical-shape records with per-value provenance, and merges them
// across customers. Partial success is a first-class outcome: a failed
// customer contributes zero records and one failure tally entry.
package harmonize

import (
	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/graph"
)

// Harmonizer turns raw result rows into harmonized records using the
// compiled query's output fields. SQL-applied transformations are recorded
// in provenance but never recomputed; category values go through the
// canonical alias table.
type Harmonizer struct {
	graph   *graph.Graph
	aliases *AliasTable
}

// New creates a Harmonizer. A nil alias table means no category
// normalization; category values then pass through flagged.
func New(g *graph.Graph, aliases *AliasTable) *Harmonizer {
	if aliases == nil {
		aliases = NewAliasTable()
	}
	return &Harmonizer{graph: g, aliases: aliases}
}

// Harmonize converts one customer's raw result. The fields slice comes from
// the compiled query that produced the raw rows, so row keys and field
// names always agree.
func (h *Harmonizer) Harmonize(raw core.RawQueryResult, fields []core.OutputField) core.HarmonizedResult {
	outcome := core.CustomerOutcome{
		CustomerID: raw.CustomerID,
		Elapsed:    raw.Elapsed,
	}
	if raw.Err != nil {
		outcome.Err = raw.Err.Error()
		return core.HarmonizedResult{Outcomes: []core.CustomerOutcome{outcome}}
	}

	records := make([]core.HarmonizedRecord, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		rec := core.HarmonizedRecord{
			CustomerID: raw.CustomerID,
			Values:     make(map[string]core.HarmonizedValue, len(fields)),
		}
		for _, f := range fields {
			rec.Values[f.Name] = h.harmonizeValue(f, row)
		}
		records = append(records, rec)
	}

	outcome.Succeeded = true
	outcome.Rows = len(records)
	return core.HarmonizedResult{
		Records:  records,
		Outcomes: []core.CustomerOutcome{outcome},
	}
}

func (h *Harmonizer) harmonizeValue(f core.OutputField, row map[string]any) core.HarmonizedValue {
	v, ok := row[f.Name]
	if !ok {
		// The adapter dropped a projected column; surface it, don't hide it.
		return core.HarmonizedValue{Flagged: true}
	}

	hv := core.HarmonizedValue{Original: v, Normalized: v}
	if v == nil {
		return hv
	}

	if f.AppliedInSQL {
		hv.Transform = f.Transform
	}

	if f.SemanticType == core.TypeCategory && f.Aggregate == "" {
		return h.normalizeCategory(f.ConceptID, hv)
	}

	if f.Transform != "" && !f.AppliedInSQL {
		// A deferred transformation the compiler could not bake into SQL.
		// Arbitrary SQL expressions cannot be evaluated here, so the value
		// passes through flagged with its rule recorded.
		hv.Transform = f.Transform
		if _, ok := h.graph.TransformByID(f.Transform); !ok {
			hv.Transform = ""
		}
		hv.Flagged = true
	}
	return hv
}

// normalizeCategory maps a raw category value onto its canonical name.
// Values with no registered alias pass through unchanged and flagged.
func (h *Harmonizer) normalizeCategory(conceptID string, hv core.HarmonizedValue) core.HarmonizedValue {
	s, ok := hv.Original.(string)
	if !ok {
		hv.Flagged = true
		return hv
	}
	canonical, ok := h.aliases.Normalize(conceptID, s)
	if !ok {
		hv.Flagged = true
		return hv
	}
	if canonical != s {
		hv.Normalized = canonical
		hv.Transform = AliasTransformID
	} else {
		hv.Normalized = canonical
	}
	return hv
}

// Merge concatenates per-customer results in argument order. Record order
// inside each customer is preserved; tallies are appended in the same
// order, so the merged result is deterministic for a fixed customer order.
func Merge(results ...core.HarmonizedResult) core.HarmonizedResult {
	var merged core.HarmonizedResult
	for _, r := range results {
		merged.Records = append(merged.Records, r.Records...)
		merged.Outcomes = append(merged.Outcomes, r.Outcomes...)
	}
	return merged
}
