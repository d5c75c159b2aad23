// internal/segment/predicate.go
package segment

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"

	"github.com/solatis/cohortkeeper/internal/rules"
	"github.com/solatis/cohortkeeper/internal/types"
)

/*
 * Metric predicate filtering.
 *
 * Refines an execution by per-user aggregates instead of raw events. A user
 * survives only if every predicate holds (AND across predicates).
 *
 *   - eventCount, sessionCount: numeric comparison (gt gte lt lte eq neq;
 *     before/after act as lt/gte)
 *   - lastActive: both sides parsed as dates, compared in epoch ms, with
 *     before (strict <) and after (>=) on top of the numeric set
 *
 * Failures never escape: an unparsable timestamp, a non-numeric value or an
 * unknown field/operator makes that predicate false for that user.
 *
 * The filtered execution keeps the base summary's LastRun because filtering
 * is not a new run.
 */

// MetricField names the per-user aggregate a predicate inspects.
type MetricField string

const (
	FieldEventCount   MetricField = "eventCount"
	FieldSessionCount MetricField = "sessionCount"
	FieldLastActive   MetricField = "lastActive"
)

// MetricOp is a metric predicate comparison.
type MetricOp string

const (
	MetricGt     MetricOp = "gt"
	MetricGte    MetricOp = "gte"
	MetricLt     MetricOp = "lt"
	MetricLte    MetricOp = "lte"
	MetricEq     MetricOp = "eq"
	MetricNeq    MetricOp = "neq"
	MetricBefore MetricOp = "before"
	MetricAfter  MetricOp = "after"
)

// MetricPredicate compares one aggregate against Value, or against the
// result of ValueFunc when set. ValueFunc runs at filter time so relative
// values such as "30 days ago" are never frozen at definition time.
type MetricPredicate struct {
	Field     MetricField `json:"field"`
	Op        MetricOp    `json:"op"`
	Value     any         `json:"value,omitempty"`
	ValueFunc func() any  `json:"-"`
}

// Validate reports an unknown field or operator.
func (p MetricPredicate) Validate() error {
	switch p.Field {
	case FieldEventCount, FieldSessionCount, FieldLastActive:
	default:
		return fmt.Errorf("%w: unknown field %q", types.ErrInvalidPredicate, p.Field)
	}
	switch p.Op {
	case MetricGt, MetricGte, MetricLt, MetricLte, MetricEq, MetricNeq, MetricBefore, MetricAfter:
	default:
		return fmt.Errorf("%w: unknown operator %q", types.ErrInvalidPredicate, p.Op)
	}
	return nil
}

// resolve returns the comparison value.
func (p MetricPredicate) resolve() any {
	if p.ValueFunc != nil {
		return p.ValueFunc()
	}
	return p.Value
}

// PredicateFilter applies metric predicates to executions.
type PredicateFilter struct {
	aggregator *Aggregator
}

// NewPredicateFilter creates a filter that summarizes with aggregator.
func NewPredicateFilter(aggregator *Aggregator) *PredicateFilter {
	if aggregator == nil {
		aggregator = NewAggregator(nil)
	}
	return &PredicateFilter{aggregator: aggregator}
}

// Apply keeps the users of base that satisfy every predicate. With no
// predicates it returns base unchanged.
func (f *PredicateFilter) Apply(base types.SegmentExecution, predicates []MetricPredicate) types.SegmentExecution {
	if len(predicates) == 0 {
		return base
	}

	// Resolve deferred values once per Apply so every user sees the same instant.
	values := make([]any, len(predicates))
	for i, p := range predicates {
		values[i] = p.resolve()
	}

	passing := make([]string, 0)
	kept := make(map[string]types.UserMetrics)
	metrics := make([]types.UserMetrics, 0)
	for _, id := range base.MatchedUserIDs {
		m, ok := base.MetricsByUser[id]
		if !ok || !passesAll(predicates, values, m) {
			continue
		}
		passing = append(passing, id)
		kept[id] = m
		metrics = append(metrics, m)
	}

	events := make([]types.EventRecord, 0)
	for _, ev := range base.MatchedEvents {
		if _, ok := kept[ev.UserID]; ok {
			events = append(events, ev)
		}
	}

	return types.SegmentExecution{
		MatchedEvents:  events,
		MatchedUserIDs: passing,
		MetricsByUser:  kept,
		Summary:        f.aggregator.Summarize(metrics, len(events), base.Summary.LastRun),
	}
}

func passesAll(predicates []MetricPredicate, values []any, m types.UserMetrics) bool {
	for i, p := range predicates {
		if !evalPredicate(p, values[i], m) {
			return false
		}
	}
	return true
}

func evalPredicate(p MetricPredicate, value any, m types.UserMetrics) bool {
	switch p.Field {
	case FieldEventCount:
		return compareMetric(p.Op, float64(m.EventCount), predicateNumber(value))
	case FieldSessionCount:
		return compareMetric(p.Op, float64(m.SessionCount), predicateNumber(value))
	case FieldLastActive:
		left, ok := rules.ParseDate(m.LastActive)
		if !ok {
			return false
		}
		right, ok := predicateTime(value)
		if !ok {
			return false
		}
		return compareMetric(p.Op, float64(left.UnixMilli()), float64(right.UnixMilli()))
	default:
		return false
	}
}

// compareMetric applies op; NaN on either side is false.
func compareMetric(op MetricOp, left, right float64) bool {
	if math.IsNaN(left) || math.IsNaN(right) {
		return false
	}
	switch op {
	case MetricGt:
		return left > right
	case MetricGte, MetricAfter:
		return left >= right
	case MetricLt, MetricBefore:
		return left < right
	case MetricLte:
		return left <= right
	case MetricEq:
		return left == right
	case MetricNeq:
		return left != right
	default:
		return false
	}
}

func predicateNumber(v any) float64 {
	if v == nil {
		return math.NaN()
	}
	if _, isBool := v.(bool); isBool {
		return math.NaN()
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN()
	}
	return f
}

func predicateTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		return rules.ParseDate(t)
	default:
		return time.Time{}, false
	}
}
