// internal/segment/definitions.go
package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/cohortkeeper/internal/rules"
	"github.com/solatis/cohortkeeper/internal/types"
)

// Definition is a named rule plus optional metric-level refinements.
// RuleFunc, when set, builds the rule each time the segment runs and takes
// precedence over Rule.
type Definition struct {
	ID               string            `json:"id"`
	Label            string            `json:"label"`
	Description      string            `json:"description"`
	Rule             rules.Node        `json:"rule"`
	RuleFunc         func() rules.Node `json:"-"`
	MetricPredicates []MetricPredicate `json:"metricPredicates,omitempty"`
}

// CurrentRule returns the rule as of now.
func (d Definition) CurrentRule() rules.Node {
	if d.RuleFunc != nil {
		return d.RuleFunc()
	}
	return d.Rule
}

// resolved snapshots RuleFunc into Rule so listings show the rule that
// would run right now.
func (d Definition) resolved() Definition {
	d.Rule = d.CurrentRule()
	return d
}

const (
	day = 24 * time.Hour

	activeWindow   = 7 * day
	inactiveWindow = 30 * day

	// highValueAmount is the minimum payment amount for high_value_payers.
	highValueAmount = 200.0
)

// allEvents matches every event; used by segments that filter on metrics only.
var allEvents = rules.Condition{Path: "event", Op: rules.OpExists}

// Registry holds the predefined segments in display order.
type Registry struct {
	defs []Definition
	byID map[string]int
}

// Predefined builds the built-in segments. Relative-time values are derived
// from now each time a segment runs, never when the registry is built.
func Predefined(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}

	defs := []Definition{
		{
			ID:          "active_last_7_days",
			Label:       "Active in last 7 days",
			Description: "Users who generated at least one event in the last 7 days",
			RuleFunc: func() rules.Node {
				return rules.Condition{
					Path:  "timestamp",
					Op:    rules.OpGte,
					Value: types.FormatTimestamp(now().Add(-activeWindow)),
				}
			},
		},
		{
			ID:          "session_count_gt_5",
			Label:       "Power users (sessions > 5)",
			Description: "Users with more than 5 sessions overall",
			Rule:        allEvents,
			MetricPredicates: []MetricPredicate{
				{Field: FieldSessionCount, Op: MetricGt, Value: 5},
			},
		},
		{
			ID:          "high_value_payers",
			Label:       "High-value payers (>= $200)",
			Description: "Users with at least one payment >= 200",
			Rule: rules.And{Children: []rules.Node{
				rules.Condition{Path: "event", Op: rules.OpEq, Value: "payment"},
				rules.Condition{Path: "properties.amount", Op: rules.OpGte, Value: highValueAmount},
			}},
		},
		{
			ID:          "enterprise_plan",
			Label:       "Enterprise plan users",
			Description: "Users on plan_tier = enterprise",
			Rule:        rules.Condition{Path: "properties.plan_tier", Op: rules.OpEq, Value: "enterprise"},
		},
		{
			ID:          "inactive_30_days",
			Label:       "Inactive (30+ days)",
			Description: "Users whose last activity is more than 30 days ago",
			Rule:        allEvents,
			MetricPredicates: []MetricPredicate{
				{
					Field: FieldLastActive,
					Op:    MetricBefore,
					ValueFunc: func() any {
						return types.FormatTimestamp(now().Add(-inactiveWindow))
					},
				},
			},
		},
		{
			ID:          "signup_or_purchase",
			Label:       "Signed up or purchased",
			Description: "Users with a signup or purchase event",
			Rule: rules.Or{Children: []rules.Node{
				rules.Condition{Path: "event", Op: rules.OpEq, Value: "signup"},
				rules.Condition{Path: "event", Op: rules.OpEq, Value: "purchase"},
			}},
		},
	}

	r := &Registry{defs: defs, byID: make(map[string]int, len(defs))}
	for i, d := range defs {
		r.byID[d.ID] = i
	}
	return r
}

// List returns the definitions in display order.
func (r *Registry) List() []Definition {
	out := make([]Definition, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.resolved()
	}
	return out
}

// Lookup returns the definition with id.
func (r *Registry) Lookup(id string) (Definition, error) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", types.ErrSegmentNotFound, id)
	}
	return r.defs[i].resolved(), nil
}

// RunDefinition executes def's current rule and then applies its metric
// predicates.
func (e *Executor) RunDefinition(ctx context.Context, def Definition, events []types.EventRecord) (types.SegmentExecution, error) {
	base, err := e.ExecuteContext(ctx, def.CurrentRule(), events)
	if err != nil {
		return types.SegmentExecution{}, err
	}
	if len(def.MetricPredicates) == 0 {
		return base, nil
	}
	return NewPredicateFilter(e.aggregator).Apply(base, def.MetricPredicates), nil
}
