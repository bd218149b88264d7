// Package compile turns schema-independent semantic query plans into
// customer-specific parameterized SQL.
//
// Compilation is a pure function of (plan, customer, graph snapshot,
// clock): no I/O, no side effects, and textually identical output for
// identical inputs, which is what makes golden-SQL tests and compiled-query
// caching possible. Every literal from the plan is emitted as a bound
// parameter, never spliced into the SQL text; this is the SQL-injection
// boundary and it holds for numeric and date values too.
package compile

import (
	"fmt"
	"strings"
	"time"

	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/dialect"
	"github.com/meridian-data/crossquery/pkg/graph"
)

// Options configures a Compiler.
type Options struct {
	// Dialect selects placeholder style and identifier quoting.
	// Defaults to the sqlite dialect.
	Dialect *dialect.Dialect
	// Now is the clock used to expand date-typed within_next_days filters
	// into concrete bound dates. Defaults to time.Now. Tests pin it.
	Now func() time.Time
}

// Compiler compiles plans against one knowledge graph.
type Compiler struct {
	graph   *graph.Graph
	dialect *dialect.Dialect
	now     func() time.Time
}

// New creates a compiler over the given graph.
func New(g *graph.Graph, opts Options) *Compiler {
	d := opts.Dialect
	if d == nil {
		d, _ = dialect.Get("sqlite")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Compiler{graph: g, dialect: d, now: now}
}

// resolution is one plan concept resolved against the target customer.
type resolution struct {
	concept core.Concept
	mapping core.CustomerMapping
	// transform is nil when the stored representation is already the
	// target representation.
	transform *core.TransformationRule
	// outType is the semantic type of the emitted column.
	outType core.SemanticType
}

// Compile resolves the plan against the knowledge graph for one customer
// and emits a parameterized SQL statement plus the field map the
// harmonizer needs. It fails fast on the first unmapped concept; a partial
// mapping for one customer never blocks compilation for another.
func (c *Compiler) Compile(plan *core.SemanticQueryPlan, customerID string) (*core.CompiledQuery, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	resolutions := make(map[string]*resolution)
	for _, id := range plan.ConceptIDs() {
		r, err := c.resolve(plan, id, customerID)
		if err != nil {
			return nil, err
		}
		resolutions[id] = r
	}

	jp, err := planJoins(plan, customerID, resolutions)
	if err != nil {
		return nil, err
	}

	b := &builder{dialect: c.dialect}

	selectClause, fields, err := c.buildSelect(plan, resolutions, jp)
	if err != nil {
		return nil, err
	}

	whereClause, havingClause, err := c.buildFilters(plan, resolutions, jp, b)
	if err != nil {
		return nil, err
	}

	var parts []string
	parts = append(parts, selectClause)
	parts = append(parts, jp.fromClause(c.dialect))
	if whereClause != "" {
		parts = append(parts, whereClause)
	}
	if groupBy := c.buildGroupBy(plan, resolutions, jp); groupBy != "" {
		parts = append(parts, groupBy)
	}
	if havingClause != "" {
		parts = append(parts, havingClause)
	}
	if orderBy := c.buildOrderBy(plan, resolutions, jp); orderBy != "" {
		parts = append(parts, orderBy)
	}
	if plan.Limit > 0 {
		parts = append(parts, "LIMIT "+b.bind(plan.Limit))
	}

	return &core.CompiledQuery{
		CustomerID: customerID,
		SQL:        strings.Join(parts, "\n"),
		Params:     b.params,
		Fields:     fields,
	}, nil
}

// resolve looks up the concept and its mapping, and decides which
// transformation (if any) the emitted column needs.
func (c *Compiler) resolve(plan *core.SemanticQueryPlan, conceptID, customerID string) (*resolution, error) {
	concept, ok := c.graph.Concept(conceptID)
	if !ok {
		return nil, &core.UnknownConceptError{ConceptID: conceptID}
	}

	mapping, err := c.graph.Resolve(conceptID, customerID)
	if err != nil {
		// The graph reports absence; the compiler names the failure.
		return nil, &core.ConceptNotMappedError{ConceptID: conceptID, CustomerID: customerID}
	}

	r := &resolution{concept: concept, mapping: mapping, outType: mapping.SemanticType}

	// A mapping-declared transform always applies.
	if mapping.RequiresTransform != "" {
		rule, ok := c.graph.TransformByID(mapping.RequiresTransform)
		if !ok {
			from, to := splitTransformID(mapping.RequiresTransform)
			return nil, &core.TransformationNotFoundError{From: from, To: to}
		}
		r.transform = &rule
		r.outType = rule.To
		return r, nil
	}

	// Otherwise the plan's (or concept's) canonical type decides.
	target := plan.Canonical[conceptID]
	if target == "" {
		target = concept.CanonicalType
	}
	if target == "" || target == mapping.SemanticType {
		return r, nil
	}
	rule, err := c.graph.TransformFor(mapping.SemanticType, target)
	if err != nil {
		return nil, err
	}
	r.transform = &rule
	r.outType = target
	return r, nil
}

func splitTransformID(id string) (core.SemanticType, core.SemanticType) {
	from, to, ok := strings.Cut(id, "->")
	if !ok {
		return core.SemanticType(id), ""
	}
	return core.SemanticType(from), core.SemanticType(to)
}

// builder accumulates bound parameters and formats their placeholders.
type builder struct {
	dialect *dialect.Dialect
	params  []any
}

func (b *builder) bind(v any) string {
	b.params = append(b.params, v)
	return b.dialect.FormatPlaceholder(len(b.params))
}

// buildSelect emits the projection clause and the output field map.
// Projections come first (they double as group keys under aggregation),
// aggregates after, each under a canonical alias.
func (c *Compiler) buildSelect(plan *core.SemanticQueryPlan, res map[string]*resolution, jp *joinPlan) (string, []core.OutputField, error) {
	var items []string
	var fields []core.OutputField

	for _, id := range plan.Projections {
		r := res[id]
		expr := r.columnExpr(jp, c.dialect)
		items = append(items, expr+" AS "+id)
		fields = append(fields, core.OutputField{
			Name:         id,
			ConceptID:    id,
			SemanticType: r.outType,
			Transform:    transformID(r),
			AppliedInSQL: r.transform != nil,
		})
	}

	for _, agg := range plan.Aggregations {
		r := res[agg.ConceptID]
		expr := r.columnExpr(jp, c.dialect)
		name := agg.OutputName()
		items = append(items, sqlAggFunc(agg.Function)+"("+expr+") AS "+name)
		fields = append(fields, core.OutputField{
			Name:         name,
			ConceptID:    agg.ConceptID,
			SemanticType: aggOutputType(agg.Function, r.outType),
			Transform:    transformID(r),
			AppliedInSQL: r.transform != nil,
			Aggregate:    agg.Function,
		})
	}

	if len(items) == 0 {
		return "", nil, fmt.Errorf("plan produced no output columns")
	}
	return "SELECT " + strings.Join(items, ", "), fields, nil
}

func transformID(r *resolution) string {
	if r.transform == nil {
		return ""
	}
	return r.transform.ID()
}

func sqlAggFunc(f core.AggFunc) string {
	return strings.ToUpper(string(f))
}

// aggOutputType gives the semantic type of an aggregated column. Count is a
// plain integer; the other functions preserve the input representation —
// which is exactly why mixed-representation inputs must be transformed
// before aggregation, not after.
func aggOutputType(f core.AggFunc, in core.SemanticType) core.SemanticType {
	if f == core.AggCount {
		return core.TypeInteger
	}
	return in
}

// buildFilters compiles the plan's filters into WHERE and HAVING
// conditions. A filter on an aggregated, non-projected concept is a
// post-aggregation condition and lands in HAVING with the aggregate
// applied; everything else is a plain WHERE predicate. The base table's
// latest-row predicate (if any) joins the WHERE conditions.
func (c *Compiler) buildFilters(plan *core.SemanticQueryPlan, res map[string]*resolution, jp *joinPlan, b *builder) (where string, having string, err error) {
	aggregated := make(map[string]core.AggFunc)
	for _, a := range plan.Aggregations {
		if _, ok := aggregated[a.ConceptID]; !ok {
			aggregated[a.ConceptID] = a.Function
		}
	}
	projected := make(map[string]struct{})
	for _, id := range plan.Projections {
		projected[id] = struct{}{}
	}

	var whereConds, havingConds []string
	if p := jp.baseLatestPredicate(c.dialect); p != "" {
		whereConds = append(whereConds, p)
	}

	for _, f := range plan.Filters {
		r := res[f.ConceptID]
		if !r.concept.Allows(f.Operator) {
			return "", "", &core.UnsupportedOperatorError{
				ConceptID: f.ConceptID,
				Operator:  f.Operator,
				Allowed:   r.concept.AllowedOperators,
			}
		}

		fn, isHaving := aggregated[f.ConceptID]
		if _, alsoProjected := projected[f.ConceptID]; alsoProjected {
			isHaving = false
		}

		expr := r.columnExpr(jp, c.dialect)
		if isHaving {
			expr = sqlAggFunc(fn) + "(" + expr + ")"
		}

		cond, err := c.compileFilter(f, r, expr, jp, b)
		if err != nil {
			return "", "", err
		}
		if isHaving {
			havingConds = append(havingConds, cond)
		} else {
			whereConds = append(whereConds, cond)
		}
	}

	if len(whereConds) > 0 {
		where = "WHERE " + strings.Join(whereConds, " AND ")
	}
	if len(havingConds) > 0 {
		having = "HAVING " + strings.Join(havingConds, " AND ")
	}
	return where, having, nil
}

// compileFilter translates one filter into a SQL condition, binding every
// value as a parameter.
func (c *Compiler) compileFilter(f core.QueryFilter, r *resolution, expr string, jp *joinPlan, b *builder) (string, error) {
	switch f.Operator {
	case core.OpEquals:
		return expr + " = " + b.bind(f.Value), nil
	case core.OpNotEquals:
		return expr + " != " + b.bind(f.Value), nil
	case core.OpGreaterThan:
		return expr + " > " + b.bind(f.Value), nil
	case core.OpGreaterOrEqual:
		return expr + " >= " + b.bind(f.Value), nil
	case core.OpLessThan:
		return expr + " < " + b.bind(f.Value), nil
	case core.OpLessOrEqual:
		return expr + " <= " + b.bind(f.Value), nil

	case core.OpBetween:
		lo, hi, err := pairValue(f.Value)
		if err != nil {
			return "", fmt.Errorf("filter on %s: %w", f.ConceptID, err)
		}
		return expr + " BETWEEN " + b.bind(lo) + " AND " + b.bind(hi), nil

	case core.OpInSet:
		members, err := sliceValue(f.Value)
		if err != nil {
			return "", fmt.Errorf("filter on %s: %w", f.ConceptID, err)
		}
		placeholders := make([]string, len(members))
		for i, m := range members {
			placeholders[i] = b.bind(m)
		}
		return expr + " IN (" + strings.Join(placeholders, ", ") + ")", nil

	case core.OpContains:
		return expr + " LIKE " + b.bind("%" + fmt.Sprint(f.Value) + "%"), nil

	case core.OpWithinNextDays:
		days, err := intValue(f.Value)
		if err != nil {
			return "", fmt.Errorf("filter on %s: %w", f.ConceptID, err)
		}
		// The branch is picked by the column's own representation, and the
		// raw column is compared directly: a days-remaining column already
		// counts down from today, a date column needs the concrete window.
		raw := r.rawColumnExpr(jp, c.dialect)
		if r.mapping.SemanticType == core.TypeDaysRemaining {
			return raw + " BETWEEN " + b.bind(0) + " AND " + b.bind(days), nil
		}
		today := c.now().Format("2006-01-02")
		end := c.now().AddDate(0, 0, days).Format("2006-01-02")
		return raw + " BETWEEN " + b.bind(today) + " AND " + b.bind(end), nil
	}
	return "", fmt.Errorf("filter on %s: unknown operator %q", f.ConceptID, f.Operator)
}

func (c *Compiler) buildGroupBy(plan *core.SemanticQueryPlan, res map[string]*resolution, jp *joinPlan) string {
	if len(plan.Aggregations) == 0 || len(plan.Projections) == 0 {
		return ""
	}
	items := make([]string, 0, len(plan.Projections))
	for _, id := range plan.Projections {
		items = append(items, res[id].columnExpr(jp, c.dialect))
	}
	return "GROUP BY " + strings.Join(items, ", ")
}

func (c *Compiler) buildOrderBy(plan *core.SemanticQueryPlan, res map[string]*resolution, jp *joinPlan) string {
	if len(plan.OrderBy) == 0 {
		return ""
	}
	items := make([]string, 0, len(plan.OrderBy))
	for _, s := range plan.OrderBy {
		dir := " ASC"
		if s.Descending {
			dir = " DESC"
		}
		items = append(items, res[s.ConceptID].columnExpr(jp, c.dialect)+dir)
	}
	return "ORDER BY " + strings.Join(items, ", ")
}
