package core

import "time"

// OutputField describes one column of a compiled query's result set, in
// projection order. The harmonizer uses it to interpret raw rows without
// re-deriving mappings.
type OutputField struct {
	// Name is the canonical column alias in the emitted SQL (the concept id
	// for projections, Aggregation.OutputName for aggregates).
	Name      string `json:"name"`
	ConceptID string `json:"concept_id"`
	// SemanticType is the representation of the emitted column, after any
	// SQL-applied transformation.
	SemanticType SemanticType `json:"semantic_type"`
	// Transform is the id of the transformation governing this column,
	// empty when none applies.
	Transform string `json:"transform,omitempty"`
	// AppliedInSQL is true when the compiler baked Transform into the SQL
	// text; the harmonizer then records it but never recomputes.
	AppliedInSQL bool `json:"applied_in_sql,omitempty"`
	// Aggregate is non-empty for aggregated columns.
	Aggregate AggFunc `json:"aggregate,omitempty"`
}

// CompiledQuery is the compiler's output for one customer: parameterized
// SQL plus the metadata needed to read its result set. Filter values are
// always bound positionally via Params and never appear in SQL.
type CompiledQuery struct {
	CustomerID string        `json:"customer_id"`
	SQL        string        `json:"sql"`
	Params     []any         `json:"params"`
	Fields     []OutputField `json:"fields"`
}

// RawQueryResult is what the execution collaborator returns for one
// customer. A failed execution carries Err and zero rows.
type RawQueryResult struct {
	CustomerID string
	// RequestID ties the result back to the engine request that issued it.
	RequestID string
	// Rows are keyed by the compiler's output field names.
	Rows    []map[string]any
	Elapsed time.Duration
	Err     *ExecutionError
}
