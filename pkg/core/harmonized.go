package core

import "time"

// HarmonizedValue is one field of a harmonized record with provenance.
type HarmonizedValue struct {
	// Original is the value exactly as the customer database returned it.
	Original any `json:"original"`
	// Normalized is the canonical-representation value.
	Normalized any `json:"normalized"`
	// Transform is the id of the transformation that produced Normalized,
	// empty when the value passed through unchanged.
	Transform string `json:"transform,omitempty"`
	// Flagged marks values the harmonizer could not normalize (e.g. a raw
	// category with no canonical alias). Flagged values pass through
	// unchanged, they are never dropped.
	Flagged bool `json:"flagged,omitempty"`
}

// HarmonizedRecord is one canonical-shape row, keyed by canonical field name.
type HarmonizedRecord struct {
	CustomerID string                     `json:"customer_id"`
	Values     map[string]HarmonizedValue `json:"values"`
}

// CustomerOutcome is the per-customer entry in a harmonized result's tally.
type CustomerOutcome struct {
	CustomerID string        `json:"customer_id"`
	Succeeded  bool          `json:"succeeded"`
	Rows       int           `json:"rows"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	// Err is the failure message for unsuccessful customers.
	Err string `json:"err,omitempty"`
}

// HarmonizedResult is the merged, canonical-shape outcome of a
// multi-customer query. Records are concatenated in the caller-fixed
// customer order; a failed customer contributes zero records and one tally
// entry. Partial success is a first-class outcome, not an error.
type HarmonizedResult struct {
	Records  []HarmonizedRecord `json:"records"`
	Outcomes []CustomerOutcome  `json:"outcomes"`
}

// Succeeded returns the customer ids whose queries succeeded, in tally order.
func (r *HarmonizedResult) Succeeded() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if o.Succeeded {
			ids = append(ids, o.CustomerID)
		}
	}
	return ids
}

// Failed returns the customer ids whose queries failed, in tally order.
func (r *HarmonizedResult) Failed() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			ids = append(ids, o.CustomerID)
		}
	}
	return ids
}
