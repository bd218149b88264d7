// Package engine orchestrates semantic queries end to end: compile a plan
// for every configured customer, fan the compiled queries out to the
// customer databases, and harmonize the raw results into one canonical
// answer with a per-customer outcome tally.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-data/crossquery/internal/adapter"
	"github.com/meridian-data/crossquery/pkg/compile"
	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/dialect"
	"github.com/meridian-data/crossquery/pkg/graph"
	"github.com/meridian-data/crossquery/pkg/harmonize"
)

// Engine executes semantic query plans against every configured customer.
type Engine struct {
	graph      *graph.Graph
	customers  map[string]core.AdapterConfig
	order      []string
	harmonizer *harmonize.Harmonizer
	logger     *slog.Logger
	now        func() time.Time

	// concurrency bounds parallel customer executions.
	concurrency int
}

// Config holds engine configuration.
type Config struct {
	// Graph is the knowledge graph to compile against.
	Graph *graph.Graph
	// Customers maps customer id to its database connection settings.
	Customers map[string]core.AdapterConfig
	// Aliases drives category normalization (optional).
	Aliases *harmonize.AliasTable
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
	// Now supplies the clock for date-window filters (optional).
	Now func() time.Time
	// Concurrency bounds parallel customer executions (default 4).
	Concurrency int
}

// New creates an engine. Customer order is fixed at construction (sorted
// by id), so merged results are deterministic run to run.
func New(cfg Config) (*Engine, error) {
	if cfg.Graph == nil {
		return nil, fmt.Errorf("engine requires a knowledge graph")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	order := make([]string, 0, len(cfg.Customers))
	for id := range cfg.Customers {
		order = append(order, id)
	}
	sort.Strings(order)

	return &Engine{
		graph:       cfg.Graph,
		customers:   cfg.Customers,
		order:       order,
		harmonizer:  harmonize.New(cfg.Graph, cfg.Aliases),
		logger:      logger,
		now:         now,
		concurrency: concurrency,
	}, nil
}

// Customers returns the configured customer ids in execution order.
func (e *Engine) Customers() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// CustomerQuery is one customer's compilation outcome. A compile failure
// for one customer never blocks the others.
type CustomerQuery struct {
	CustomerID string
	Query      *core.CompiledQuery
	Err        error
}

// Compile compiles the plan for one customer, targeting the dialect of its
// configured adapter type.
func (e *Engine) Compile(plan *core.SemanticQueryPlan, customerID string) (*core.CompiledQuery, error) {
	cfg, ok := e.customers[customerID]
	if !ok {
		return nil, fmt.Errorf("customer %q is not configured", customerID)
	}
	return e.compileFor(plan, customerID, cfg)
}

// CompileAll compiles the plan for every configured customer, in execution
// order.
func (e *Engine) CompileAll(plan *core.SemanticQueryPlan) []CustomerQuery {
	out := make([]CustomerQuery, 0, len(e.order))
	for _, id := range e.order {
		q, err := e.compileFor(plan, id, e.customers[id])
		out = append(out, CustomerQuery{CustomerID: id, Query: q, Err: err})
	}
	return out
}

func (e *Engine) compileFor(plan *core.SemanticQueryPlan, customerID string, cfg core.AdapterConfig) (*core.CompiledQuery, error) {
	d, ok := dialect.Get(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("no dialect registered for adapter type %q", cfg.Type)
	}
	c := compile.New(e.graph, compile.Options{Dialect: d, Now: e.now})
	return c.Compile(plan, customerID)
}

// Query runs the plan against every configured customer and returns the
// merged harmonized result. Per-customer failures (compile or execution)
// land in the outcome tally; the returned error is reserved for plans that
// cannot run at all.
func (e *Engine) Query(ctx context.Context, plan *core.SemanticQueryPlan) (core.HarmonizedResult, error) {
	if err := plan.Validate(); err != nil {
		return core.HarmonizedResult{}, fmt.Errorf("invalid query plan: %w", err)
	}
	if len(e.order) == 0 {
		return core.HarmonizedResult{}, fmt.Errorf("no customers configured")
	}

	requestID := uuid.NewString()
	e.logger.Info("executing semantic query",
		"request_id", requestID,
		"intent", string(plan.Intent),
		"customers", len(e.order))

	// Results land in a slice indexed by execution order, so the merge is
	// deterministic regardless of which customer finishes first.
	results := make([]core.HarmonizedResult, len(e.order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, id := range e.order {
		g.Go(func() error {
			results[i] = e.queryCustomer(gctx, plan, id, requestID)
			return nil
		})
	}
	_ = g.Wait() // workers report failures through the tally, never an error

	merged := harmonize.Merge(results...)
	e.logger.Info("semantic query complete",
		"request_id", requestID,
		"records", len(merged.Records),
		"succeeded", len(merged.Succeeded()),
		"failed", len(merged.Failed()))
	return merged, nil
}

// queryCustomer runs one customer end to end: compile, connect, execute,
// harmonize. Every failure mode becomes a failed outcome.
func (e *Engine) queryCustomer(ctx context.Context, plan *core.SemanticQueryPlan, customerID, requestID string) core.HarmonizedResult {
	cfg := e.customers[customerID]

	cq, err := e.compileFor(plan, customerID, cfg)
	if err != nil {
		e.logger.Warn("compilation failed",
			"request_id", requestID,
			"customer", customerID,
			"error", err)
		return e.failedResult(customerID, requestID, 0, err)
	}

	start := e.now()
	rows, err := e.execute(ctx, cfg, cq)
	elapsed := time.Since(start)
	if err != nil {
		e.logger.Warn("execution failed",
			"request_id", requestID,
			"customer", customerID,
			"error", err)
		return e.failedResult(customerID, requestID, elapsed, err)
	}

	e.logger.Debug("customer query complete",
		"request_id", requestID,
		"customer", customerID,
		"rows", len(rows),
		"elapsed", elapsed)

	raw := core.RawQueryResult{
		CustomerID: customerID,
		RequestID:  requestID,
		Rows:       rows,
		Elapsed:    elapsed,
	}
	return e.harmonizer.Harmonize(raw, cq.Fields)
}

// execute connects, runs the parameterized query, and closes the
// connection. Adapters are per-request; customer databases are external
// systems we hold no pooled state for.
func (e *Engine) execute(ctx context.Context, cfg core.AdapterConfig, cq *core.CompiledQuery) ([]map[string]any, error) {
	db, err := adapter.New(cfg, e.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	return db.Query(ctx, cq.SQL, cq.Params...)
}

func (e *Engine) failedResult(customerID, requestID string, elapsed time.Duration, err error) core.HarmonizedResult {
	raw := core.RawQueryResult{
		CustomerID: customerID,
		RequestID:  requestID,
		Elapsed:    elapsed,
		Err:        &core.ExecutionError{CustomerID: customerID, Message: err.Error()},
	}
	return e.harmonizer.Harmonize(raw, nil)
}
