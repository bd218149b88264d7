package compile

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/meridian-data/crossquery/pkg/dialect"
)

// rawColumnExpr is the mapped column qualified by its table alias, without
// any transformation applied.
func (r *resolution) rawColumnExpr(jp *joinPlan, d *dialect.Dialect) string {
	return jp.aliases[r.mapping.Table] + "." + d.QuoteIdentifierIfNeeded(r.mapping.Column)
}

// columnExpr is the emitted expression for this concept: the raw column, or
// the transformation template with {column} and auxiliary placeholders
// substituted with alias-qualified references.
func (r *resolution) columnExpr(jp *joinPlan, d *dialect.Dialect) string {
	raw := r.rawColumnExpr(jp, d)
	if r.transform == nil {
		return raw
	}

	alias := jp.aliases[r.mapping.Table]
	expr := strings.ReplaceAll(r.transform.Expression, "{column}", raw)
	for _, aux := range r.transform.AuxColumns {
		ref := alias + "." + d.QuoteIdentifierIfNeeded(aux)
		expr = strings.ReplaceAll(expr, "{"+aux+"}", ref)
	}
	return "(" + expr + ")"
}

// pairValue extracts the two bounds of a between filter.
func pairValue(v any) (any, any, error) {
	members, err := sliceValue(v)
	if err != nil {
		return nil, nil, fmt.Errorf("between expects a two-element list: %w", err)
	}
	if len(members) != 2 {
		return nil, nil, fmt.Errorf("between expects exactly 2 values, got %d", len(members))
	}
	return members[0], members[1], nil
}

// sliceValue normalizes any slice-typed filter value to []any.
func sliceValue(v any) ([]any, error) {
	if v == nil {
		return nil, fmt.Errorf("expected a list value, got nil")
	}
	if members, ok := v.([]any); ok {
		if len(members) == 0 {
			return nil, fmt.Errorf("expected a non-empty list value")
		}
		return members, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list value, got %T", v)
	}
	if rv.Len() == 0 {
		return nil, fmt.Errorf("expected a non-empty list value")
	}
	members := make([]any, rv.Len())
	for i := range members {
		members[i] = rv.Index(i).Interface()
	}
	return members, nil
}

// intValue coerces numeric filter values (including JSON-decoded float64)
// to int.
func intValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("expected a whole number, got %v", n)
		}
		return int(n), nil
	case float32:
		return intValue(float64(n))
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
