package compile

import (
	"strconv"
	"strings"

	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/dialect"
)

// joinPlan is the merged join structure for one compilation: the shared
// base table, deterministic table aliases, and the deduplicated join edges
// in emission order.
type joinPlan struct {
	customerID string
	baseTable  string
	aliases    map[string]string
	joins      []joinEdge
	// baseLatest restricts the base table itself to its newest row per key.
	baseLatest *core.LatestRow
}

// joinEdge is one emitted JOIN, with an optional latest-row restriction on
// its target table.
type joinEdge struct {
	step   core.JoinStep
	latest *core.LatestRow
}

func baseOf(m core.CustomerMapping) string {
	if len(m.JoinPath) > 0 {
		return m.JoinPath[0].Table
	}
	return m.Table
}

// planJoins merges the join paths of every resolved concept. Shared
// prefixes are emitted once; conflicting edges or conflicting latest-row
// disambiguators fail with AmbiguousJoinError rather than guessing a
// resolution order.
func planJoins(plan *core.SemanticQueryPlan, customerID string, res map[string]*resolution) (*joinPlan, error) {
	jp := &joinPlan{customerID: customerID, aliases: make(map[string]string)}

	latest := make(map[string]*core.LatestRow)
	ids := plan.ConceptIDs()

	for _, id := range ids {
		m := res[id].mapping

		base := baseOf(m)
		if jp.baseTable == "" {
			jp.baseTable = base
			jp.aliases[base] = "t0"
		} else if base != jp.baseTable {
			return nil, &core.AmbiguousJoinError{
				CustomerID: customerID,
				Table:      base,
				First:      "query base table " + jp.baseTable,
				Second:     "unconnected base table " + base,
			}
		}

		for _, step := range m.JoinPath {
			if _, ok := jp.aliases[step.Table]; !ok {
				return nil, &core.AmbiguousJoinError{
					CustomerID: customerID,
					Table:      step.Table,
					First:      "join path of concept " + id,
					Second:     "unreachable source table " + step.Table,
				}
			}
			if existing, ok := jp.edgeTo(step.TargetTable); ok {
				if existing.step != step {
					return nil, &core.AmbiguousJoinError{
						CustomerID: customerID,
						Table:      step.TargetTable,
						First:      describeStep(existing.step),
						Second:     describeStep(step),
					}
				}
				continue
			}
			jp.aliases[step.TargetTable] = "t" + strconv.Itoa(len(jp.aliases))
			jp.joins = append(jp.joins, joinEdge{step: step})
		}

		if m.Latest != nil {
			if prev, ok := latest[m.Table]; ok && *prev != *m.Latest {
				return nil, &core.AmbiguousJoinError{
					CustomerID: customerID,
					Table:      m.Table,
					First:      "latest-row on " + prev.TimestampColumn,
					Second:     "latest-row on " + m.Latest.TimestampColumn,
				}
			}
			l := *m.Latest
			latest[m.Table] = &l
		}
	}

	// Attach latest-row restrictions to their join edges; the base table's
	// restriction becomes a WHERE predicate instead.
	for table, l := range latest {
		if table == jp.baseTable {
			jp.baseLatest = l
			continue
		}
		attached := false
		for i := range jp.joins {
			if jp.joins[i].step.TargetTable == table {
				jp.joins[i].latest = l
				attached = true
				break
			}
		}
		if !attached {
			// Mapping declares latest-row on a table nothing joins to.
			return nil, &core.AmbiguousJoinError{
				CustomerID: customerID,
				Table:      table,
				First:      "latest-row on " + l.TimestampColumn,
				Second:     "no join reaching table " + table,
			}
		}
	}

	return jp, nil
}

func (jp *joinPlan) edgeTo(table string) (joinEdge, bool) {
	for _, e := range jp.joins {
		if e.step.TargetTable == table {
			return e, true
		}
	}
	return joinEdge{}, false
}

func describeStep(s core.JoinStep) string {
	return "join " + s.Table + "." + s.JoinColumn + " = " + s.TargetTable + "." + s.TargetColumn
}

// fromClause emits FROM plus the merged joins, each join exactly once.
func (jp *joinPlan) fromClause(d *dialect.Dialect) string {
	var sb strings.Builder
	sb.WriteString("FROM ")
	sb.WriteString(d.QuoteIdentifierIfNeeded(jp.baseTable))
	sb.WriteString(" t0")

	for _, e := range jp.joins {
		target := e.step.TargetTable
		alias := jp.aliases[target]
		sb.WriteString("\nJOIN ")
		sb.WriteString(d.QuoteIdentifierIfNeeded(target))
		sb.WriteString(" ")
		sb.WriteString(alias)
		sb.WriteString(" ON ")
		sb.WriteString(alias + "." + d.QuoteIdentifierIfNeeded(e.step.TargetColumn))
		sb.WriteString(" = ")
		sb.WriteString(jp.aliases[e.step.Table] + "." + d.QuoteIdentifierIfNeeded(e.step.JoinColumn))
		if e.latest != nil {
			sb.WriteString(" AND ")
			sb.WriteString(latestPredicate(target, alias, e.latest, d))
		}
	}
	return sb.String()
}

// baseLatestPredicate returns the base table's latest-row condition for the
// WHERE clause, or "" when none applies.
func (jp *joinPlan) baseLatestPredicate(d *dialect.Dialect) string {
	if jp.baseLatest == nil {
		return ""
	}
	return latestPredicate(jp.baseTable, "t0", jp.baseLatest, d)
}

// latestPredicate emits the correlated subquery restricting a history
// table to the newest row per key. A correlated subquery, not a plain
// join, so rows never duplicate.
func latestPredicate(table, alias string, l *core.LatestRow, d *dialect.Dialect) string {
	ts := d.QuoteIdentifierIfNeeded(l.TimestampColumn)
	key := d.QuoteIdentifierIfNeeded(l.KeyColumn)
	return alias + "." + ts +
		" = (SELECT MAX(x." + ts + ") FROM " + d.QuoteIdentifierIfNeeded(table) +
		" x WHERE x." + key + " = " + alias + "." + key + ")"
}
