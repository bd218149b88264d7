package core

// JoinStep is one hop on the path from a query's base table to the table
// holding a mapped column.
type JoinStep struct {
	// Table is the table already reachable when this step runs.
	Table string `json:"table" yaml:"table"`
	// JoinColumn is the column on Table used for the join.
	JoinColumn string `json:"join_column" yaml:"join_column"`
	// TargetTable is the table this step brings into the query.
	TargetTable string `json:"target_table" yaml:"target_table"`
	// TargetColumn is the column on TargetTable matched against JoinColumn.
	TargetColumn string `json:"target_column" yaml:"target_column"`
}

// LatestRow disambiguates history tables: of all rows sharing KeyColumn,
// only the one with the maximum TimestampColumn participates in the query.
// The compiler emits it as a correlated subquery predicate, not a plain
// join, to avoid row duplication.
type LatestRow struct {
	TimestampColumn string `json:"timestamp_column" yaml:"timestamp_column"`
	KeyColumn       string `json:"key_column" yaml:"key_column"`
}

// MappingMeta is the small fixed structure for mapping provenance produced
// by the (external) schema-analysis collaborator. It deliberately replaces
// an open-ended attribute bag.
type MappingMeta struct {
	// Confidence in [0,1] as reported by the proposer.
	Confidence float64 `json:"confidence,omitempty"`
	// Source records how the mapping entered the graph
	// (e.g. "proposed", "confirmed", "manual").
	Source string `json:"source,omitempty"`
	// Note is free-form reviewer context.
	Note string `json:"note,omitempty"`
}

// CustomerMapping binds a concept to a physical location in one customer's
// schema. Exactly one mapping exists per (concept, customer) pair; an
// unmapped concept is a valid state until a query references it.
type CustomerMapping struct {
	ConceptID  string `json:"concept_id"`
	CustomerID string `json:"customer_id"`
	// Table and Column locate the value. When JoinPath is non-empty, Table
	// is the final table the path reaches.
	Table    string `json:"table"`
	Column   string `json:"column"`
	DataType string `json:"data_type,omitempty"`
	// SemanticType is the representation this customer stores.
	SemanticType SemanticType `json:"semantic_type"`
	// JoinPath is the ordered hop sequence from the query's base table to
	// Table. Empty when the column lives on the base table itself.
	JoinPath []JoinStep `json:"join_path,omitempty"`
	// Latest, when set, restricts Table to the newest row per key.
	Latest *LatestRow `json:"latest,omitempty"`
	// RequiresTransform names a transformation rule (by its "from->to" id)
	// that must always be applied when reading this column, regardless of
	// the concept's canonical type.
	RequiresTransform string `json:"requires_transform,omitempty"`
	// Meta carries optional provenance from the mapping proposer.
	Meta *MappingMeta `json:"meta,omitempty"`
}

// TransformationRule converts values from one semantic type to another via
// a SQL expression template. Rules are never derived automatically: the
// inverse of a registered rule must itself be registered.
//
// Expression templates reference the source column as {column} and each
// auxiliary column (on the same table as the source) as {name}:
//
//	{column} * {term_years}
type TransformationRule struct {
	From       SemanticType `json:"from"`
	To         SemanticType `json:"to"`
	Expression string       `json:"expression"`
	AuxColumns []string     `json:"aux_columns,omitempty"`
}

// TransformID formats the stable identifier for a (from, to) rule pair.
func TransformID(from, to SemanticType) string {
	return string(from) + "->" + string(to)
}

// ID returns the rule's stable identifier.
func (r TransformationRule) ID() string {
	return TransformID(r.From, r.To)
}
