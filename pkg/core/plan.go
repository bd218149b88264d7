package core

import "fmt"

// Intent classifies what a semantic query plan asks for.
type Intent string

// Intent constants.
const (
	IntentList        Intent = "list"
	IntentFilter      Intent = "filter"
	IntentAggregation Intent = "aggregation"
)

// AggFunc is an aggregation function.
type AggFunc string

// Aggregation function constants. These map one-to-one onto their SQL
// equivalents.
const (
	AggCount AggFunc = "count"
	AggSum   AggFunc = "sum"
	AggAvg   AggFunc = "avg"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
)

// QueryFilter is one filter condition in a plan.
type QueryFilter struct {
	ConceptID string   `json:"concept_id"`
	Operator  Operator `json:"operator"`
	// Value holds the comparison value. OpBetween expects a two-element
	// slice, OpInSet a slice of members, OpWithinNextDays an integer day
	// count.
	Value any `json:"value"`
	// Note is an optional semantic annotation from the intent service.
	Note string `json:"note,omitempty"`
}

// Aggregation pairs an aggregation function with the concept it runs over.
type Aggregation struct {
	Function  AggFunc `json:"function"`
	ConceptID string  `json:"concept_id"`
	// Alias overrides the default output name "<function>_<concept>".
	Alias string `json:"alias,omitempty"`
}

// OutputName returns the canonical column alias for this aggregation.
func (a Aggregation) OutputName() string {
	if a.Alias != "" {
		return a.Alias
	}
	return string(a.Function) + "_" + a.ConceptID
}

// SortKey orders results by a concept.
type SortKey struct {
	ConceptID  string `json:"concept_id"`
	Descending bool   `json:"descending,omitempty"`
}

// SemanticQueryPlan is the schema-independent query shape produced by the
// external intent service. The core only validates and consumes it.
type SemanticQueryPlan struct {
	Intent       Intent        `json:"intent"`
	Filters      []QueryFilter `json:"filters,omitempty"`
	Projections  []string      `json:"projections,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	OrderBy      []SortKey     `json:"order_by,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	// Canonical overrides the target representation per concept for this
	// plan, taking precedence over Concept.CanonicalType.
	Canonical map[string]SemanticType `json:"canonical,omitempty"`
}

// Validate checks the plan's internal consistency before compilation.
func (p *SemanticQueryPlan) Validate() error {
	switch p.Intent {
	case IntentList, IntentFilter, IntentAggregation:
	default:
		return fmt.Errorf("unknown intent %q", p.Intent)
	}
	if len(p.Projections) == 0 && len(p.Aggregations) == 0 {
		return fmt.Errorf("plan has neither projections nor aggregations")
	}
	for i, f := range p.Filters {
		if f.ConceptID == "" {
			return fmt.Errorf("filter %d: empty concept id", i)
		}
		if !IsValidOperator(f.Operator) {
			return fmt.Errorf("filter %d: unknown operator %q", i, f.Operator)
		}
	}
	for i, a := range p.Aggregations {
		switch a.Function {
		case AggCount, AggSum, AggAvg, AggMin, AggMax:
		default:
			return fmt.Errorf("aggregation %d: unknown function %q", i, a.Function)
		}
		if a.ConceptID == "" {
			return fmt.Errorf("aggregation %d: empty concept id", i)
		}
	}
	if p.Limit < 0 {
		return fmt.Errorf("negative limit %d", p.Limit)
	}
	return nil
}

// ConceptIDs returns every concept the plan references, in first-reference
// order (projections, then filters, aggregations, order keys), deduplicated.
func (p *SemanticQueryPlan) ConceptIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, id := range p.Projections {
		add(id)
	}
	for _, f := range p.Filters {
		add(f.ConceptID)
	}
	for _, a := range p.Aggregations {
		add(a.ConceptID)
	}
	for _, s := range p.OrderBy {
		add(s.ConceptID)
	}
	return ids
}
