package segment

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/cohortkeeper/internal/rules"
	"github.com/solatis/cohortkeeper/internal/types"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func dataset() []types.EventRecord {
	events := []types.EventRecord{
		ev("u2", "login", 0, ""),
		ev("u1", "payment", time.Minute, ""),
		ev("u2", "payment", 2*time.Minute, ""),
		ev("u3", "view", 3*time.Minute, ""),
		ev("u1", "payment", 2*time.Hour, ""),
	}
	events[1].Properties = types.Properties{"amount": 250.0, "feature": "export"}
	events[2].Properties = types.Properties{"amount": 50.0}
	events[4].Properties = types.Properties{"amount": 300.0}
	return events
}

func TestExecute_GroupsByFirstSeenUser(t *testing.T) {
	runAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	exec := NewExecutor(Config{Now: fixedClock(runAt)})

	rule := rules.Condition{Path: "event", Op: rules.OpEq, Value: "payment"}
	result := exec.Execute(rule, dataset())

	if len(result.MatchedEvents) != 3 {
		t.Fatalf("len(MatchedEvents) = %d, want 3", len(result.MatchedEvents))
	}
	if !reflect.DeepEqual(result.MatchedUserIDs, []string{"u1", "u2"}) {
		t.Errorf("MatchedUserIDs = %v, want [u1 u2]", result.MatchedUserIDs)
	}
	if len(result.MetricsByUser) != len(result.MatchedUserIDs) {
		t.Errorf("len(MetricsByUser) = %d, want %d", len(result.MetricsByUser), len(result.MatchedUserIDs))
	}
	if got := result.MetricsByUser["u1"]; got.EventCount != 2 || got.SessionCount != 2 {
		t.Errorf("MetricsByUser[u1] = %+v", got)
	}
	if result.Summary.Users != 2 || result.Summary.Events != 3 || result.Summary.Sessions != 3 {
		t.Errorf("Summary = %+v", result.Summary)
	}
	if result.Summary.LastRun != "2024-03-02T00:00:00.000Z" {
		t.Errorf("Summary.LastRun = %q", result.Summary.LastRun)
	}
}

func TestExecute_NoMatches(t *testing.T) {
	result := NewExecutor(Config{}).Execute(rules.Condition{Path: "event", Op: rules.OpEq, Value: "none"}, dataset())

	if result.MatchedEvents == nil || result.MatchedUserIDs == nil || result.MetricsByUser == nil {
		t.Errorf("empty result has nil collections: %+v", result)
	}
	if result.Summary.Users != 0 || result.Summary.Events != 0 || result.Summary.LastActive != "" {
		t.Errorf("Summary = %+v", result.Summary)
	}
}

func TestExecute_FailClosedOnBadPath(t *testing.T) {
	rule := rules.Condition{Path: "properties.feature.x", Op: rules.OpEq, Value: "y"}

	result := NewExecutor(Config{}).Execute(rule, dataset())
	if len(result.MatchedEvents) != 0 {
		t.Errorf("len(MatchedEvents) = %d, want 0", len(result.MatchedEvents))
	}
}

// explosive panics when encoded, standing in for a value that breaks evaluation.
type explosive struct{}

func (explosive) MarshalJSON() ([]byte, error) {
	panic("boom")
}

func TestExecute_RecoversRowPanic(t *testing.T) {
	events := dataset()
	events[0].Properties = types.Properties{"blob": explosive{}}

	var mu sync.Mutex
	var failures []types.EventRecord
	var lastErr error
	exec := NewExecutor(Config{OnRowError: func(rec types.EventRecord, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, rec)
		lastErr = err
	}})

	rule := rules.Or{Children: []rules.Node{
		rules.Condition{Path: "properties.blob", Op: rules.OpContains, Value: "x"},
		rules.Condition{Path: "event", Op: rules.OpEq, Value: "payment"},
	}}
	result := exec.Execute(rule, events)

	if len(result.MatchedEvents) != 3 {
		t.Errorf("len(MatchedEvents) = %d, want 3", len(result.MatchedEvents))
	}
	if len(failures) != 1 || failures[0].UserID != "u2" {
		t.Fatalf("failures = %+v, want the first u2 event", failures)
	}
	if !errors.Is(lastErr, types.ErrRowEvaluation) {
		t.Errorf("error = %v, want ErrRowEvaluation", lastErr)
	}
}

func TestExecute_ReportsBadRegexPerRow(t *testing.T) {
	events := dataset()

	var mu sync.Mutex
	var errs []error
	exec := NewExecutor(Config{OnRowError: func(_ types.EventRecord, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}})

	rule := rules.Condition{Path: "event", Op: rules.OpRegex, Value: "/(unclosed/"}
	result := exec.Execute(rule, events)

	if len(result.MatchedEvents) != 0 {
		t.Errorf("len(MatchedEvents) = %d, want 0", len(result.MatchedEvents))
	}
	if len(errs) != len(events) {
		t.Fatalf("OnRowError called %d times, want %d", len(errs), len(events))
	}
	for _, err := range errs {
		if !errors.Is(err, types.ErrRowEvaluation) || !errors.Is(err, types.ErrInvalidRegex) {
			t.Errorf("error = %v, want ErrRowEvaluation wrapping ErrInvalidRegex", err)
		}
	}
}

func TestExecute_ValidRegexReportsNothing(t *testing.T) {
	called := false
	exec := NewExecutor(Config{OnRowError: func(types.EventRecord, error) { called = true }})

	result := exec.Execute(rules.Condition{Path: "event", Op: rules.OpRegex, Value: "/^PAY/i"}, dataset())
	if len(result.MatchedEvents) == 0 {
		t.Errorf("case-insensitive regex matched nothing")
	}
	if called {
		t.Errorf("OnRowError called for a valid regex")
	}
}

func TestExecuteContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(Config{}).ExecuteContext(ctx, allEvents, dataset())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ExecuteContext() error = %v, want context.Canceled", err)
	}
}

func TestExecute_ParallelMatchesSequential(t *testing.T) {
	events := make([]types.EventRecord, 0, 5000)
	for i := 0; i < 5000; i++ {
		user := []string{"a", "b", "c", "d", "e", "f", "g"}[i%7]
		e := ev(user, []string{"view", "payment", "login"}[i%3], time.Duration(i)*time.Minute, "")
		events = append(events, e)
	}
	rule := rules.Not{Child: rules.Condition{Path: "event", Op: rules.OpEq, Value: "login"}}

	seq := NewExecutor(Config{Workers: 1, Now: fixedClock(t0)}).Execute(rule, events)
	par := NewExecutor(Config{Workers: 8, Now: fixedClock(t0)}).Execute(rule, events)

	if !reflect.DeepEqual(seq, par) {
		t.Errorf("parallel execution differs from sequential")
	}
}

// Property-based test: identical inputs yield identical results apart from lastRun
func TestExecute_PropertyDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genEvent := gopter.CombineGens(
		gen.OneConstOf("u1", "u2", "u3", "u4"),
		gen.OneConstOf("view", "payment", "login"),
	).Map(func(v []any) types.EventRecord {
		return types.EventRecord{UserID: v[0].(string), Event: v[1].(string)}
	})

	rule := rules.Or{Children: []rules.Node{
		rules.Condition{Path: "event", Op: rules.OpEq, Value: "payment"},
		rules.Condition{Path: "user_id", Op: rules.OpIn, Value: []any{"u4"}},
	}}

	properties.Property("two executions agree", prop.ForAll(
		func(events []types.EventRecord) bool {
			for i := range events {
				events[i].Timestamp = types.FormatTimestamp(t0.Add(time.Duration(i) * 7 * time.Minute))
			}
			execA := NewExecutor(Config{Workers: 3})
			execB := NewExecutor(Config{Workers: 1})
			a := execA.Execute(rule, events)
			b := execB.Execute(rule, events)
			return reflect.DeepEqual(a.MatchedEvents, b.MatchedEvents) &&
				reflect.DeepEqual(a.MatchedUserIDs, b.MatchedUserIDs) &&
				reflect.DeepEqual(a.MetricsByUser, b.MetricsByUser) &&
				a.Summary.Users == len(a.MatchedUserIDs) &&
				a.Summary.Events == len(a.MatchedEvents)
		},
		gen.SliceOf(genEvent),
	))

	properties.TestingRun(t)
}
