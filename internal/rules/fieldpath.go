// internal/rules/fieldpath.go
package rules

import (
	"strconv"
	"strings"

	"github.com/solatis/cohortkeeper/internal/types"
)

/*
 * Field path resolution for event records.
 *
 * Resolves dot paths such as "properties.cart.items.0.sku" against an
 * EventRecord. The four top-level fields (user_id, event, timestamp,
 * session_id) take a fast path; everything else walks the "properties" map
 * segment by segment.
 *
 * Key functions:
 *   - ParsePath: splits a dot path into PathSegments
 *   - Resolve: walks an EventRecord, never fails
 *   - resolveRecursive: internal traversal over maps and slices
 *
 * Missing semantics: any missing segment, walking into a scalar, or an
 * out-of-range or non-integer array index yields Found=false. Callers treat
 * that exactly like a null value.
 */

// PathSegment represents one component of a dot path.
// Numeric segments keep their key form so they also address map keys like "0".
type PathSegment struct {
	Key     string // raw segment text
	Index   int    // array index (valid only if IsIndex)
	IsIndex bool   // true when Key is a canonical non-negative integer
}

// ResolveResult contains the resolved value.
type ResolveResult struct {
	Value any  // resolved value (nil if not found or null)
	Found bool // true if path resolved to a value
}

var notFound = ResolveResult{}

// ParsePath splits path on "." into segments.
// Returns nil for an empty path.
func ParsePath(path string) []PathSegment {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	segs := make([]PathSegment, len(parts))
	for i, p := range parts {
		segs[i] = PathSegment{Key: p}
		// Only canonical integers index arrays: "01" and "-1" stay plain keys
		if n, err := strconv.Atoi(p); err == nil && n >= 0 && strconv.Itoa(n) == p {
			segs[i].Index = n
			segs[i].IsIndex = true
		}
	}
	return segs
}

// Resolve returns the value at path within rec.
func Resolve(rec types.EventRecord, path string) ResolveResult {
	switch path {
	case "user_id":
		return ResolveResult{Value: rec.UserID, Found: true}
	case "event":
		return ResolveResult{Value: rec.Event, Found: true}
	case "timestamp":
		return ResolveResult{Value: rec.Timestamp, Found: true}
	case "session_id":
		if rec.SessionID == "" {
			return notFound
		}
		return ResolveResult{Value: rec.SessionID, Found: true}
	}

	segs := ParsePath(path)
	if len(segs) == 0 {
		return notFound
	}

	var root any
	switch segs[0].Key {
	case "user_id":
		root = rec.UserID
	case "event":
		root = rec.Event
	case "timestamp":
		root = rec.Timestamp
	case "session_id":
		if rec.SessionID == "" {
			return notFound
		}
		root = rec.SessionID
	case "properties":
		if rec.Properties == nil {
			return notFound
		}
		root = map[string]any(rec.Properties)
	default:
		return notFound
	}

	return resolveRecursive(segs[1:], root)
}

// resolveRecursive traverses nested maps and slices following path segments.
func resolveRecursive(path []PathSegment, current any) ResolveResult {
	if len(path) == 0 {
		return ResolveResult{Value: current, Found: true}
	}

	seg := path[0]
	remaining := path[1:]

	switch v := current.(type) {
	case map[string]any:
		val, ok := v[seg.Key]
		if !ok {
			return notFound
		}
		return resolveRecursive(remaining, val)
	case types.Properties:
		return resolveRecursive(path, map[string]any(v))
	case []any:
		if !seg.IsIndex || seg.Index >= len(v) {
			return notFound
		}
		return resolveRecursive(remaining, v[seg.Index])
	case []string:
		if !seg.IsIndex || seg.Index >= len(v) {
			return notFound
		}
		return resolveRecursive(remaining, v[seg.Index])
	case []float64:
		if !seg.IsIndex || seg.Index >= len(v) {
			return notFound
		}
		return resolveRecursive(remaining, v[seg.Index])
	case []map[string]any:
		if !seg.IsIndex || seg.Index >= len(v) {
			return notFound
		}
		return resolveRecursive(remaining, v[seg.Index])
	default:
		// nil or scalar value but path continues
		return notFound
	}
}
