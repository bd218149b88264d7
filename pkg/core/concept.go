package core

// SemanticType tags a concrete representation of a concept. Two values of
// the same concept but different semantic types are not comparable without
// a registered transformation (e.g. a lifetime total vs. an annual figure).
type SemanticType string

// Semantic type constants.
const (
	TypeLifetimeTotal   SemanticType = "lifetime_total"
	TypeAnnualRecurring SemanticType = "annual_recurring_revenue"
	TypeDate            SemanticType = "date"
	TypeDaysRemaining   SemanticType = "days_remaining"
	TypeCategory        SemanticType = "category"
	TypeText            SemanticType = "text"
	TypeInteger         SemanticType = "integer"
	TypeFloat           SemanticType = "float"
	TypeBoolean         SemanticType = "boolean"
)

// Operator is a filter operator in a semantic query plan. The set is closed:
// the compiler translates each operator to its SQL form and rejects anything
// else at plan validation time.
type Operator string

// Filter operator constants.
const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpGreaterThan    Operator = "greater_than"
	OpGreaterOrEqual Operator = "greater_than_or_equal"
	OpLessThan       Operator = "less_than"
	OpLessOrEqual    Operator = "less_than_or_equal"
	OpBetween        Operator = "between"
	OpInSet          Operator = "in_set"
	OpContains       Operator = "contains"
	OpWithinNextDays Operator = "within_next_days"
)

// AllOperators lists every operator the compiler understands.
var AllOperators = []Operator{
	OpEquals, OpNotEquals,
	OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual,
	OpBetween, OpInSet, OpContains, OpWithinNextDays,
}

// IsValidOperator reports whether op is part of the closed operator set.
func IsValidOperator(op Operator) bool {
	for _, o := range AllOperators {
		if o == op {
			return true
		}
	}
	return false
}

// Concept is a canonical, schema-independent business notion
// (e.g. "contract_value"). Concepts are immutable once registered.
type Concept struct {
	// ID is the stable key used everywhere else in the system.
	ID string `json:"id"`
	// Name is the human-readable name.
	Name string `json:"name"`
	// Description explains what the concept represents.
	Description string `json:"description,omitempty"`
	// Aliases are alternative names the intent service may use.
	Aliases []string `json:"aliases,omitempty"`
	// AllowedOperators restricts which filter operators apply to this
	// concept. Empty means every operator is allowed.
	AllowedOperators []Operator `json:"allowed_operators,omitempty"`
	// CanonicalType is the representation projections are normalized to.
	// Empty means values are emitted in whatever representation the
	// customer stores.
	CanonicalType SemanticType `json:"canonical_type,omitempty"`
}

// Allows reports whether the operator may be used on this concept.
func (c *Concept) Allows(op Operator) bool {
	if len(c.AllowedOperators) == 0 {
		return true
	}
	for _, o := range c.AllowedOperators {
		if o == op {
			return true
		}
	}
	return false
}
