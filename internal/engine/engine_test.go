package engine

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/meridian-data/crossquery/internal/testutil"
	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/graph"
	"github.com/meridian-data/crossquery/pkg/harmonize"
)

// seedDB creates a SQLite fixture database and runs the given statements.
func seedDB(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

// newTestFleet builds a knowledge graph and two seeded customer databases.
// Acme stores lifetime values directly; Globex stores annual recurring
// revenue plus a contract term, so its values need the conversion.
func newTestFleet(t *testing.T) (*graph.Graph, map[string]core.AdapterConfig) {
	t.Helper()
	dir := t.TempDir()

	g := graph.New()
	for _, c := range []core.Concept{
		{ID: "customer_name", Name: "Customer Name"},
		{ID: "customer_value", Name: "Customer Value", CanonicalType: core.TypeLifetimeTotal},
		{ID: "industry", Name: "Industry", CanonicalType: core.TypeCategory},
	} {
		require.NoError(t, g.RegisterConcept(c))
	}
	g.AddTransformation(core.TransformationRule{
		From: core.TypeAnnualRecurring, To: core.TypeLifetimeTotal,
		Expression: "{column} * {term_years}", AuxColumns: []string{"term_years"},
	})

	for _, m := range []core.CustomerMapping{
		{ConceptID: "customer_name", CustomerID: "acme", Table: "accounts", Column: "name", SemanticType: core.TypeText},
		{ConceptID: "customer_value", CustomerID: "acme", Table: "accounts", Column: "lifetime_value", SemanticType: core.TypeLifetimeTotal},
		{ConceptID: "industry", CustomerID: "acme", Table: "accounts", Column: "industry", SemanticType: core.TypeCategory},
		{ConceptID: "customer_name", CustomerID: "globex", Table: "clients", Column: "client_name", SemanticType: core.TypeText},
		{ConceptID: "customer_value", CustomerID: "globex", Table: "clients", Column: "arr", SemanticType: core.TypeAnnualRecurring},
		{ConceptID: "industry", CustomerID: "globex", Table: "clients", Column: "sector", SemanticType: core.TypeCategory},
	} {
		require.NoError(t, g.AddMapping(m))
	}

	acmePath := filepath.Join(dir, "acme.db")
	seedDB(t, acmePath,
		`CREATE TABLE accounts (name TEXT, lifetime_value REAL, industry TEXT)`,
		`INSERT INTO accounts VALUES
			('Initech', 250000, 'Tech'),
			('Sprockets', 90000, 'Manufacturing')`,
	)

	globexPath := filepath.Join(dir, "globex.db")
	seedDB(t, globexPath,
		`CREATE TABLE clients (client_name TEXT, arr REAL, term_years INTEGER, sector TEXT)`,
		`INSERT INTO clients VALUES
			('Hooli', 100000, 3, 'information technology'),
			('Dunder Mifflin', 20000, 2, 'Paper Goods')`,
	)

	customers := map[string]core.AdapterConfig{
		"acme":   {Type: "sqlite", Path: acmePath},
		"globex": {Type: "sqlite", Path: globexPath},
	}
	return g, customers
}

func newTestEngine(t *testing.T, g *graph.Graph, customers map[string]core.AdapterConfig) *Engine {
	t.Helper()
	aliases := harmonize.NewAliasTable().SeedIndustry("industry")
	e, err := New(Config{
		Graph:     g,
		Customers: customers,
		Aliases:   aliases,
		Logger:    testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return e
}

func TestQuery_EndToEnd(t *testing.T) {
	g, customers := newTestFleet(t)
	e := newTestEngine(t, g, customers)

	plan := &core.SemanticQueryPlan{
		Intent:      core.IntentFilter,
		Projections: []string{"customer_name", "customer_value", "industry"},
		Filters: []core.QueryFilter{
			{ConceptID: "customer_value", Operator: core.OpGreaterThan, Value: 100000},
		},
	}

	result, err := e.Query(context.Background(), plan)
	require.NoError(t, err)

	// Initech (250000 lifetime) and Hooli (100000 * 3 = 300000) pass the
	// threshold; each customer's below-threshold row does not.
	require.Len(t, result.Records, 2)
	assert.Equal(t, "acme", result.Records[0].CustomerID)
	assert.Equal(t, "globex", result.Records[1].CustomerID)

	initech := result.Records[0].Values
	assert.Equal(t, "Initech", initech["customer_name"].Normalized)
	assert.EqualValues(t, 250000, initech["customer_value"].Normalized)
	assert.Empty(t, initech["customer_value"].Transform)

	hooli := result.Records[1].Values
	assert.Equal(t, "Hooli", hooli["customer_name"].Normalized)
	assert.EqualValues(t, 300000, hooli["customer_value"].Normalized)
	assert.Equal(t, "annual_recurring_revenue->lifetime_total", hooli["customer_value"].Transform)

	// Category normalization unifies the divergent industry taxonomies.
	assert.Equal(t, "Technology", initech["industry"].Normalized)
	assert.Equal(t, "Technology", hooli["industry"].Normalized)

	assert.Equal(t, []string{"acme", "globex"}, result.Succeeded())
	assert.Empty(t, result.Failed())
}

func TestQuery_PartialSuccess(t *testing.T) {
	g, customers := newTestFleet(t)
	// A customer whose database has no tables: execution fails.
	customers["broken"] = core.AdapterConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "empty.db")}
	require.NoError(t, g.AddMapping(core.CustomerMapping{
		ConceptID: "customer_name", CustomerID: "broken",
		Table: "accounts", Column: "name", SemanticType: core.TypeText,
	}))
	e := newTestEngine(t, g, customers)

	plan := &core.SemanticQueryPlan{
		Intent:      core.IntentList,
		Projections: []string{"customer_name"},
	}

	result, err := e.Query(context.Background(), plan)
	require.NoError(t, err, "one failing customer must not fail the whole query")

	assert.Equal(t, []string{"acme", "globex"}, result.Succeeded())
	assert.Equal(t, []string{"broken"}, result.Failed())
	require.Len(t, result.Records, 4)
	for _, rec := range result.Records {
		assert.NotEqual(t, "broken", rec.CustomerID)
	}
}

func TestQuery_UnmappedCustomerInTally(t *testing.T) {
	g, customers := newTestFleet(t)
	// Configured but never onboarded: compilation fails for it.
	customers["initech"] = core.AdapterConfig{Type: "sqlite", Path: ":memory:"}
	e := newTestEngine(t, g, customers)

	plan := &core.SemanticQueryPlan{
		Intent:      core.IntentList,
		Projections: []string{"customer_name"},
	}

	result, err := e.Query(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{"initech"}, result.Failed())
	var outcome core.CustomerOutcome
	for _, o := range result.Outcomes {
		if o.CustomerID == "initech" {
			outcome = o
		}
	}
	assert.Contains(t, outcome.Err, "not mapped")
}

func TestQuery_DeterministicOrder(t *testing.T) {
	g, customers := newTestFleet(t)
	e := newTestEngine(t, g, customers)

	plan := &core.SemanticQueryPlan{
		Intent:      core.IntentList,
		Projections: []string{"customer_name"},
		OrderBy:     []core.SortKey{{ConceptID: "customer_name"}},
	}

	first, err := e.Query(context.Background(), plan)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Query(context.Background(), plan)
		require.NoError(t, err)
		require.Len(t, again.Records, len(first.Records))
		for j := range first.Records {
			assert.Equal(t, first.Records[j].CustomerID, again.Records[j].CustomerID)
			assert.Equal(t, first.Records[j].Values["customer_name"].Normalized,
				again.Records[j].Values["customer_name"].Normalized)
		}
	}
}

func TestQuery_InvalidPlan(t *testing.T) {
	g, customers := newTestFleet(t)
	e := newTestEngine(t, g, customers)

	_, err := e.Query(context.Background(), &core.SemanticQueryPlan{Intent: "summon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query plan")
}

func TestCompileAll(t *testing.T) {
	g, customers := newTestFleet(t)
	e := newTestEngine(t, g, customers)

	plan := &core.SemanticQueryPlan{
		Intent:      core.IntentList,
		Projections: []string{"customer_value"},
	}

	results := e.CompileAll(plan)
	require.Len(t, results, 2)
	assert.Equal(t, "acme", results[0].CustomerID)
	assert.Equal(t, "globex", results[1].CustomerID)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.NotEqual(t, results[0].Query.SQL, results[1].Query.SQL,
		"the same plan compiles to different SQL per customer schema")
}

func TestOnboard(t *testing.T) {
	g, customers := newTestFleet(t)
	e := newTestEngine(t, g, customers)

	proposal, err := graph.ParseProposal([]byte(`
customer_id: globex
mappings:
  - concept: customer_name
    table: clients
    column: client_name
    semantic_type: text
    confidence: 0.95
  - concept: industry
    table: clients
    column: nonexistent_column
    semantic_type: category
`))
	require.NoError(t, err)

	t.Run("dry run leaves graph untouched", func(t *testing.T) {
		before := g.Stats()
		result, err := e.Onboard(context.Background(), proposal, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"customer_name"}, result.Installed)
		require.Len(t, result.Rejected, 1)
		assert.Contains(t, result.Rejected[0], "nonexistent_column")
		assert.Equal(t, before, g.Stats())
	})

	t.Run("install upserts the valid mapping", func(t *testing.T) {
		result, err := e.Onboard(context.Background(), proposal, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"customer_name"}, result.Installed)

		m, err := g.Resolve("customer_name", "globex")
		require.NoError(t, err)
		require.NotNil(t, m.Meta)
		assert.Equal(t, "proposed", m.Meta.Source)
	})
}

func TestOnboard_UnknownCustomer(t *testing.T) {
	g, customers := newTestFleet(t)
	e := newTestEngine(t, g, customers)

	proposal := &graph.MappingProposal{
		CustomerID: "nobody",
		Mappings:   []graph.ProposedMapping{{Concept: "customer_name", Table: "t", Column: "c"}},
	}
	_, err := e.Onboard(context.Background(), proposal, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestEngineElapsedRecorded(t *testing.T) {
	g, customers := newTestFleet(t)
	e := newTestEngine(t, g, customers)

	plan := &core.SemanticQueryPlan{
		Intent:      core.IntentList,
		Projections: []string{"customer_name"},
	}
	result, err := e.Query(context.Background(), plan)
	require.NoError(t, err)
	for _, o := range result.Outcomes {
		assert.Greater(t, o.Elapsed, time.Duration(0))
	}
}
