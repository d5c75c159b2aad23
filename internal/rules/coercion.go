// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

/*
 * Type coercion for operator evaluation.
 *
 * Event properties are schemaless, so operators compare heterogeneous
 * values. Three coercions cover every operator:
 *
 *   - normalize (eq, neq, in, nin): numbers and booleans pass through,
 *     date-like strings become epoch milliseconds, other strings are
 *     lower-cased, nil becomes a null value equal only to itself.
 *   - toNumber (gt, gte, lt, lte): number pass-through, else date string to
 *     epoch ms, else numeric string, else NaN. NaN makes every ordering false.
 *   - toText / targetText (contains, regex): strings as-is, nil as "", other
 *     values JSON-encoded.
 *
 * Date parsing uses cast.StringToDate, which accepts RFC 3339, date-only and
 * the common RFC 1123/822 layouts. Zone-less inputs are read as UTC since
 * ingestion already normalized every timestamp.
 */

// valueKind tags a normalized comparison value.
type valueKind int

const (
	kindNull valueKind = iota
	kindNumber
	kindBool
	kindText
)

// normalized is a comparable equality key. Two values are equal under eq
// iff their normalized forms are ==. NaN numbers never compare equal.
type normalized struct {
	kind valueKind
	num  float64
	flag bool
	text string
}

// normalize maps a value to its equality key.
func normalize(v any) normalized {
	if v == nil {
		return normalized{kind: kindNull}
	}
	if n, ok := asFloat(v); ok {
		return normalized{kind: kindNumber, num: n}
	}
	switch t := v.(type) {
	case bool:
		return normalized{kind: kindBool, flag: t}
	case string:
		if ms, ok := parseDateMillis(t); ok {
			return normalized{kind: kindNumber, num: ms}
		}
		return normalized{kind: kindText, text: strings.ToLower(t)}
	default:
		return normalized{kind: kindText, text: strings.ToLower(toText(v))}
	}
}

// toNumber coerces v for ordering comparisons. Returns NaN when v has no
// numeric reading.
func toNumber(v any) float64 {
	if n, ok := asFloat(v); ok {
		return n
	}
	s, ok := v.(string)
	if !ok {
		// nil, booleans and composites have no ordering
		return math.NaN()
	}
	if ms, ok := parseDateMillis(s); ok {
		return ms
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// asFloat converts numeric Go types to float64.
// Handles float64 from JSON decoding plus the integer kinds Go callers use.
func asFloat(v any) (float64, bool) {
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toText renders the left side of contains/regex.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// targetText renders the right side of contains and string regex specs.
func targetText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if n, ok := asFloat(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return toText(v)
}

// ParseDate parses a date-like string. Exported for metric predicates and
// dataset normalization, which share the engine's notion of a date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := cast.StringToDate(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseDateMillis returns the epoch-millisecond reading of a date string.
func parseDateMillis(s string) (float64, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return 0, false
	}
	return float64(t.UnixMilli()), true
}
