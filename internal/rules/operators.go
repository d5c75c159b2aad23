// internal/rules/operators.go
package rules

import (
	"math"
	"strings"
)

/*
 * Operator comparison logic.
 *
 * Implements the 12 condition operators over coerced values (see
 * coercion.go). Apply is total: unknown operators and impossible comparisons
 * return false, never an error.
 *
 * Operators:
 *   - eq/neq: equality on normalized values
 *   - gt/gte/lt/lte: numeric ordering on toNumber; NaN operand => false
 *   - contains: substring of the left side's text form
 *   - in/nin: membership of normalized left in a normalized list
 *   - exists/nexists: nil/absent test on the left side only
 *   - regex: pattern match on the left side's text form (regex.go)
 */

// Operator names a condition operator on the wire.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpContains Operator = "contains"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpNin      Operator = "nin"
	OpExists   Operator = "exists"
	OpNexists  Operator = "nexists"
	OpRegex    Operator = "regex"
)

// Operators lists every supported operator in declaration order.
var Operators = []Operator{
	OpEq, OpNeq, OpContains, OpGt, OpGte, OpLt, OpLte,
	OpIn, OpNin, OpExists, OpNexists, OpRegex,
}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// Apply evaluates left op right. A nil left means the field was absent or null.
func Apply(op Operator, left, right any) bool {
	switch op {
	case OpEq:
		return normalize(left) == normalize(right)
	case OpNeq:
		return normalize(left) != normalize(right)
	case OpContains:
		return strings.Contains(toText(left), targetText(right))
	case OpGt:
		return compareNumeric(left, right, func(a, b float64) bool { return a > b })
	case OpGte:
		return compareNumeric(left, right, func(a, b float64) bool { return a >= b })
	case OpLt:
		return compareNumeric(left, right, func(a, b float64) bool { return a < b })
	case OpLte:
		return compareNumeric(left, right, func(a, b float64) bool { return a <= b })
	case OpIn:
		found, ok := compareIn(left, right)
		return ok && found
	case OpNin:
		found, ok := compareIn(left, right)
		return ok && !found
	case OpExists:
		return left != nil
	case OpNexists:
		return left == nil
	case OpRegex:
		return matchRegex(left, right)
	default:
		return false
	}
}

// compareNumeric coerces both sides and applies cmp. Any NaN operand is false.
func compareNumeric(left, right any, cmp func(a, b float64) bool) bool {
	a, b := toNumber(left), toNumber(right)
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return cmp(a, b)
}

// compareIn looks up normalized left among the normalized elements of set.
// ok is false when set is not a list, which fails both in and nin.
func compareIn(left, set any) (found bool, ok bool) {
	elems, ok := asList(set)
	if !ok {
		return false, false
	}
	key := normalize(left)
	for _, elem := range elems {
		if normalize(elem) == key {
			return true, true
		}
	}
	return false, true
}

// asList accepts []any from JSON decoding plus typed slices Go callers build.
func asList(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []float64:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []int:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}
