package harmonize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/graph"
)

func testHarmonizer(t *testing.T) *Harmonizer {
	t.Helper()
	g := graph.New()
	aliases := NewAliasTable()
	aliases.Add("industry", "Technology", "tech", "information technology")
	aliases.Add("industry", "Finance", "financial services")
	return New(g, aliases)
}

func TestHarmonize_Provenance(t *testing.T) {
	h := testHarmonizer(t)

	fields := []core.OutputField{
		{Name: "customer_name", ConceptID: "customer_name", SemanticType: core.TypeText},
		{Name: "customer_value", ConceptID: "customer_value", SemanticType: core.TypeLifetimeTotal,
			Transform: "annual_recurring_revenue->lifetime_total", AppliedInSQL: true},
	}
	raw := core.RawQueryResult{
		CustomerID: "globex",
		Rows: []map[string]any{
			{"customer_name": "Initech", "customer_value": 250000.0},
		},
	}

	result := h.Harmonize(raw, fields)
	require.Len(t, result.Records, 1)

	name := result.Records[0].Values["customer_name"]
	assert.Equal(t, "Initech", name.Original)
	assert.Equal(t, "Initech", name.Normalized)
	assert.Empty(t, name.Transform)
	assert.False(t, name.Flagged)

	// SQL-applied transforms are recorded, never recomputed.
	value := result.Records[0].Values["customer_value"]
	assert.Equal(t, 250000.0, value.Original)
	assert.Equal(t, 250000.0, value.Normalized)
	assert.Equal(t, "annual_recurring_revenue->lifetime_total", value.Transform)
	assert.False(t, value.Flagged)
}

func TestHarmonize_CategoryNormalization(t *testing.T) {
	h := testHarmonizer(t)
	fields := []core.OutputField{
		{Name: "industry", ConceptID: "industry", SemanticType: core.TypeCategory},
	}

	tests := []struct {
		name           string
		raw            any
		wantNormalized any
		wantTransform  string
		wantFlagged    bool
	}{
		{"exact alias", "tech", "Technology", AliasTransformID, false},
		{"case insensitive", "TECH", "Technology", AliasTransformID, false},
		{"canonical passes through", "Technology", "Technology", "", false},
		{"longest match wins", "information technology services", "Technology", AliasTransformID, false},
		{"unknown value flagged not dropped", "Underwater Basketweaving", "Underwater Basketweaving", "", true},
		{"non-string flagged", 42, 42, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := core.RawQueryResult{
				CustomerID: "acme",
				Rows:       []map[string]any{{"industry": tt.raw}},
			}
			result := h.Harmonize(raw, fields)
			require.Len(t, result.Records, 1)

			v := result.Records[0].Values["industry"]
			assert.Equal(t, tt.raw, v.Original, "original value always preserved")
			assert.Equal(t, tt.wantNormalized, v.Normalized)
			assert.Equal(t, tt.wantTransform, v.Transform)
			assert.Equal(t, tt.wantFlagged, v.Flagged)
		})
	}
}

func TestHarmonize_NullsPassThrough(t *testing.T) {
	h := testHarmonizer(t)
	fields := []core.OutputField{
		{Name: "industry", ConceptID: "industry", SemanticType: core.TypeCategory},
	}
	raw := core.RawQueryResult{
		CustomerID: "acme",
		Rows:       []map[string]any{{"industry": nil}},
	}

	result := h.Harmonize(raw, fields)
	v := result.Records[0].Values["industry"]
	assert.Nil(t, v.Original)
	assert.Nil(t, v.Normalized)
	assert.False(t, v.Flagged)
}

func TestHarmonize_AggregatedCategorySkipsAliases(t *testing.T) {
	h := testHarmonizer(t)
	fields := []core.OutputField{
		{Name: "count_industry", ConceptID: "industry", SemanticType: core.TypeInteger, Aggregate: core.AggCount},
	}
	raw := core.RawQueryResult{
		CustomerID: "acme",
		Rows:       []map[string]any{{"count_industry": int64(7)}},
	}

	result := h.Harmonize(raw, fields)
	v := result.Records[0].Values["count_industry"]
	assert.Equal(t, int64(7), v.Normalized)
	assert.False(t, v.Flagged)
}

func TestHarmonize_FailedCustomer(t *testing.T) {
	h := testHarmonizer(t)
	raw := core.RawQueryResult{
		CustomerID: "acme",
		Elapsed:    40 * time.Millisecond,
		Err:        &core.ExecutionError{CustomerID: "acme", Message: "connection refused"},
	}

	result := h.Harmonize(raw, nil)
	assert.Empty(t, result.Records)
	require.Len(t, result.Outcomes, 1)
	assert.False(t, result.Outcomes[0].Succeeded)
	assert.Contains(t, result.Outcomes[0].Err, "connection refused")
	assert.Equal(t, 40*time.Millisecond, result.Outcomes[0].Elapsed)
}

func TestMerge_PartialSuccess(t *testing.T) {
	h := testHarmonizer(t)
	fields := []core.OutputField{
		{Name: "customer_name", ConceptID: "customer_name", SemanticType: core.TypeText},
	}

	ok1 := h.Harmonize(core.RawQueryResult{
		CustomerID: "acme",
		Rows:       []map[string]any{{"customer_name": "A1"}, {"customer_name": "A2"}},
	}, fields)
	failed := h.Harmonize(core.RawQueryResult{
		CustomerID: "globex",
		Err:        &core.ExecutionError{CustomerID: "globex", Message: "timeout"},
	}, fields)
	ok2 := h.Harmonize(core.RawQueryResult{
		CustomerID: "initech",
		Rows:       []map[string]any{{"customer_name": "I1"}},
	}, fields)

	merged := Merge(ok1, failed, ok2)

	// Records concatenate in argument order; the failed customer
	// contributes none but still appears in the tally.
	require.Len(t, merged.Records, 3)
	assert.Equal(t, "acme", merged.Records[0].CustomerID)
	assert.Equal(t, "initech", merged.Records[2].CustomerID)

	assert.Equal(t, []string{"acme", "initech"}, merged.Succeeded())
	assert.Equal(t, []string{"globex"}, merged.Failed())

	require.Len(t, merged.Outcomes, 3)
	assert.Equal(t, 2, merged.Outcomes[0].Rows)
	assert.Equal(t, 0, merged.Outcomes[1].Rows)
	assert.Equal(t, 1, merged.Outcomes[2].Rows)
}

func TestAliasTable_LongestMatchWins(t *testing.T) {
	tbl := NewAliasTable()
	tbl.Add("industry", "Technology", "tech")
	tbl.Add("industry", "Financial Technology", "fintech")

	got, ok := tbl.Normalize("industry", "FinTech")
	require.True(t, ok)
	assert.Equal(t, "Financial Technology", got, "exact match beats substring")

	got, ok = tbl.Normalize("industry", "emerging fintech startups")
	require.True(t, ok)
	assert.Equal(t, "Financial Technology", got, "longest contained alias wins")
}

func TestAliasTable_UnknownConcept(t *testing.T) {
	tbl := NewAliasTable()
	assert.False(t, tbl.HasConcept("industry"))
	_, ok := tbl.Normalize("industry", "tech")
	assert.False(t, ok)
}

func TestSeedIndustry(t *testing.T) {
	tbl := NewAliasTable().SeedIndustry("industry")
	got, ok := tbl.Normalize("industry", "Information Technology")
	require.True(t, ok)
	assert.Equal(t, "Technology", got)
}
