// internal/segment/executor.go
package segment

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solatis/cohortkeeper/internal/rules"
	"github.com/solatis/cohortkeeper/internal/types"
)

/*
 * Segment execution.
 *
 * Pipeline:
 *   1. Evaluate the rule against every event (parallel by chunk). A panic
 *      or an uncompilable regex while evaluating one event is reported
 *      through OnRowError and counted as a non-match for that event only.
 *   2. Group matched events by user_id in first-seen order.
 *   3. Compute UserMetrics per group (parallel by user).
 *   4. Summarize across users with a fresh lastRun timestamp.
 *
 * Parallel stages write into pre-sized slices by index so the merge is
 * deterministic: matchedEvents keep input order and matchedUserIds keep
 * first-seen order regardless of worker scheduling.
 */

const (
	// DefaultWorkers bounds evaluation and aggregation parallelism.
	DefaultWorkers = 4

	// minChunkSize keeps small datasets on a single goroutine.
	minChunkSize = 512
)

// RowErrorFunc observes a per-event failure that was absorbed as a non-match.
// Called from worker goroutines; implementations must be safe for concurrent use.
type RowErrorFunc func(rec types.EventRecord, err error)

// Config configures an Executor. The zero value selects defaults.
type Config struct {
	Session    SessionConfig
	Workers    int
	Now        func() time.Time
	OnRowError RowErrorFunc
}

// Executor evaluates rules against event datasets.
// Safe for concurrent use; holds no per-execution state.
type Executor struct {
	aggregator *Aggregator
	workers    int
	now        func() time.Time
	onRowError RowErrorFunc
}

// NewExecutor creates an executor from cfg.
func NewExecutor(cfg Config) *Executor {
	e := &Executor{
		aggregator: NewAggregator(NewSessionizer(cfg.Session)),
		workers:    cfg.Workers,
		now:        cfg.Now,
		onRowError: cfg.OnRowError,
	}
	if e.workers < 1 {
		e.workers = DefaultWorkers
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Aggregator returns the aggregator used for metrics, shared with PredicateFilter.
func (e *Executor) Aggregator() *Aggregator {
	return e.aggregator
}

// Now returns the executor's current time.
func (e *Executor) Now() time.Time {
	return e.now()
}

// Execute evaluates rule against events. It cannot fail: every per-event
// problem is absorbed as a non-match.
func (e *Executor) Execute(rule rules.Node, events []types.EventRecord) types.SegmentExecution {
	exec, _ := e.ExecuteContext(context.Background(), rule, events)
	return exec
}

// ExecuteContext is Execute with cancellation. The only possible error is
// ctx.Err(), checked between chunks and between users.
func (e *Executor) ExecuteContext(ctx context.Context, rule rules.Node, events []types.EventRecord) (types.SegmentExecution, error) {
	if err := ctx.Err(); err != nil {
		return types.SegmentExecution{}, err
	}
	matched, err := e.filterEvents(ctx, rule, events)
	if err != nil {
		return types.SegmentExecution{}, err
	}
	return buildExecution(ctx, e.aggregator, e.workers, matched, types.FormatTimestamp(e.now()))
}

// filterEvents returns the events satisfying rule, in input order.
func (e *Executor) filterEvents(ctx context.Context, rule rules.Node, events []types.EventRecord) ([]types.EventRecord, error) {
	hits := make([]bool, len(events))

	chunk := (len(events) + e.workers - 1) / e.workers
	if chunk < minChunkSize {
		chunk = minChunkSize
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(events); start += chunk {
		end := min(start+chunk, len(events))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				hits[i] = e.safeEvaluate(rule, events[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matched := make([]types.EventRecord, 0)
	for i, hit := range hits {
		if hit {
			matched = append(matched, events[i])
		}
	}
	return matched, nil
}

// safeEvaluate converts a panic or an absorbed evaluation failure into a
// non-match and reports it.
func (e *Executor) safeEvaluate(rule rules.Node, rec types.EventRecord) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			e.reportRow(rec, fmt.Errorf("%w: %v", types.ErrRowEvaluation, r))
		}
	}()
	ok, err := rules.EvaluateChecked(rule, rec)
	if err != nil {
		e.reportRow(rec, fmt.Errorf("%w: %w", types.ErrRowEvaluation, err))
	}
	return ok
}

func (e *Executor) reportRow(rec types.EventRecord, err error) {
	if e.onRowError != nil {
		e.onRowError(rec, err)
	}
}

// buildExecution groups matched events by user and computes metrics.
func buildExecution(ctx context.Context, agg *Aggregator, workers int, matched []types.EventRecord, lastRun string) (types.SegmentExecution, error) {
	userIDs, groups := groupByUser(matched)

	metrics := make([]types.UserMetrics, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range userIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			metrics[i] = agg.UserMetrics(groups[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.SegmentExecution{}, err
	}

	byUser := make(map[string]types.UserMetrics, len(userIDs))
	for i, id := range userIDs {
		byUser[id] = metrics[i]
	}

	return types.SegmentExecution{
		MatchedEvents:  matched,
		MatchedUserIDs: userIDs,
		MetricsByUser:  byUser,
		Summary:        agg.Summarize(metrics, len(matched), lastRun),
	}, nil
}

// groupByUser partitions events by user_id, preserving first-seen user order
// and event order within each user.
func groupByUser(events []types.EventRecord) ([]string, map[string][]types.EventRecord) {
	order := make([]string, 0)
	groups := make(map[string][]types.EventRecord)
	for _, ev := range events {
		if _, seen := groups[ev.UserID]; !seen {
			order = append(order, ev.UserID)
		}
		groups[ev.UserID] = append(groups[ev.UserID], ev)
	}
	return order, groups
}
