package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    SemanticQueryPlan
		wantErr string
	}{
		{
			name: "valid list",
			plan: SemanticQueryPlan{Intent: IntentList, Projections: []string{"a"}},
		},
		{
			name: "valid aggregation",
			plan: SemanticQueryPlan{
				Intent:       IntentAggregation,
				Aggregations: []Aggregation{{Function: AggCount, ConceptID: "a"}},
			},
		},
		{
			name:    "unknown intent",
			plan:    SemanticQueryPlan{Intent: "summon", Projections: []string{"a"}},
			wantErr: "unknown intent",
		},
		{
			name:    "no output columns",
			plan:    SemanticQueryPlan{Intent: IntentList},
			wantErr: "neither projections nor aggregations",
		},
		{
			name: "unknown operator",
			plan: SemanticQueryPlan{
				Intent:      IntentFilter,
				Projections: []string{"a"},
				Filters:     []QueryFilter{{ConceptID: "a", Operator: "resembles"}},
			},
			wantErr: "unknown operator",
		},
		{
			name: "filter missing concept",
			plan: SemanticQueryPlan{
				Intent:      IntentFilter,
				Projections: []string{"a"},
				Filters:     []QueryFilter{{Operator: OpEquals}},
			},
			wantErr: "empty concept id",
		},
		{
			name: "unknown aggregation function",
			plan: SemanticQueryPlan{
				Intent:       IntentAggregation,
				Aggregations: []Aggregation{{Function: "median", ConceptID: "a"}},
			},
			wantErr: "unknown function",
		},
		{
			name:    "negative limit",
			plan:    SemanticQueryPlan{Intent: IntentList, Projections: []string{"a"}, Limit: -1},
			wantErr: "negative limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlanConceptIDs(t *testing.T) {
	plan := SemanticQueryPlan{
		Intent:      IntentAggregation,
		Projections: []string{"industry", "customer_value"},
		Filters: []QueryFilter{
			{ConceptID: "contract_end", Operator: OpWithinNextDays, Value: 30},
			{ConceptID: "customer_value", Operator: OpGreaterThan, Value: 0},
		},
		Aggregations: []Aggregation{{Function: AggSum, ConceptID: "customer_value"}},
		OrderBy:      []SortKey{{ConceptID: "customer_name"}},
	}

	// First-reference order, deduplicated.
	assert.Equal(t,
		[]string{"industry", "customer_value", "contract_end", "customer_name"},
		plan.ConceptIDs())
}

func TestAggregationOutputName(t *testing.T) {
	assert.Equal(t, "sum_customer_value", Aggregation{Function: AggSum, ConceptID: "customer_value"}.OutputName())
	assert.Equal(t, "total", Aggregation{Function: AggSum, ConceptID: "customer_value", Alias: "total"}.OutputName())
}

func TestConceptAllows(t *testing.T) {
	open := Concept{ID: "open"}
	assert.True(t, open.Allows(OpContains), "empty allowed list means every operator")

	restricted := Concept{ID: "restricted", AllowedOperators: []Operator{OpEquals, OpInSet}}
	assert.True(t, restricted.Allows(OpEquals))
	assert.False(t, restricted.Allows(OpContains))
}

func TestTransformID(t *testing.T) {
	assert.Equal(t, "annual_recurring_revenue->lifetime_total",
		TransformID(TypeAnnualRecurring, TypeLifetimeTotal))

	r := TransformationRule{From: TypeDate, To: TypeDaysRemaining, Expression: "x"}
	assert.Equal(t, "date->days_remaining", r.ID())
}
