package matching

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// JSONPathCondition is one compiled body condition: a JSONPath expression
// and the value it must select. An expected value of {"exists": bool}
// checks presence instead of equality.
type JSONPathCondition struct {
	Path     string
	Expected any
	expr     jp.Expr
}

// CompileJSONPath compiles conditions at load time so request matching
// never re-parses expressions.
func CompileJSONPath(conditions map[string]any) ([]JSONPathCondition, error) {
	out := make([]JSONPathCondition, 0, len(conditions))
	for _, path := range slices.Sorted(maps.Keys(conditions)) {
		expr, err := jp.ParseString(path)
		if err != nil {
			return nil, fmt.Errorf("invalid JSONPath expression %q: %w", path, err)
		}
		out = append(out, JSONPathCondition{Path: path, Expected: conditions[path], expr: expr})
	}
	return out, nil
}

// MatchJSONPath evaluates every condition against a JSON body. It returns
// false when the body is not JSON or any condition fails.
func MatchJSONPath(conditions []JSONPathCondition, body []byte) bool {
	if len(conditions) == 0 {
		return true
	}
	data, err := oj.Parse(body)
	if err != nil {
		return false
	}
	for _, c := range conditions {
		if !c.match(data) {
			return false
		}
	}
	return true
}

func (c JSONPathCondition) match(data any) bool {
	results := c.expr.Get(data)

	if exists, ok := existenceCheck(c.Expected); ok {
		return (len(results) > 0) == exists
	}

	// Wildcard paths select several values; any may satisfy the condition.
	for _, r := range results {
		if valuesEqual(r, c.Expected) {
			return true
		}
	}
	return false
}

// existenceCheck reports whether expected is {"exists": bool}.
func existenceCheck(expected any) (exists bool, ok bool) {
	m, isMap := expected.(map[string]any)
	if !isMap || len(m) != 1 {
		return false, false
	}
	b, isBool := m["exists"].(bool)
	return b, isBool
}

// valuesEqual compares a selected JSON value with an expected value from a
// config file, coercing numbers across their Go representations.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	if reflect.DeepEqual(actual, expected) {
		return true
	}
	an, aok := toFloat64(actual)
	en, eok := toFloat64(expected)
	if aok && eok {
		return an == en
	}
	return false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
