// internal/segment/metrics.go
package segment

import (
	"github.com/solatis/cohortkeeper/internal/types"
)

// unknownUserID labels metrics computed from an empty event group.
const unknownUserID = "unknown"

// Aggregator derives per-user metrics and execution summaries.
type Aggregator struct {
	sessionizer *Sessionizer
}

// NewAggregator creates an aggregator using sessionizer for session counts.
func NewAggregator(sessionizer *Sessionizer) *Aggregator {
	if sessionizer == nil {
		sessionizer = NewSessionizer(SessionConfig{})
	}
	return &Aggregator{sessionizer: sessionizer}
}

// UserMetrics computes metrics for one user's matched events, in ascending
// time order. Sessions with unparsable or inverted bounds count toward
// SessionCount but add nothing to the duration total.
func (a *Aggregator) UserMetrics(events []types.EventRecord) types.UserMetrics {
	m := types.UserMetrics{UserID: unknownUserID, EventCount: len(events)}
	if len(events) == 0 {
		return m
	}
	if events[0].UserID != "" {
		m.UserID = events[0].UserID
	}
	m.LastActive = events[len(events)-1].Timestamp

	sessions := a.sessionizer.Sessionize(events)
	m.SessionCount = len(sessions)
	m.TotalSessionDurationMs = totalDurationMs(sessions)
	if m.SessionCount > 0 {
		m.AvgSessionDurationMs = float64(m.TotalSessionDurationMs) / float64(m.SessionCount)
	}
	return m
}

func totalDurationMs(sessions []types.Session) int64 {
	var total int64
	for _, s := range sessions {
		start, ok := types.ParseTimestamp(s.Start)
		if !ok {
			continue
		}
		end, ok := types.ParseTimestamp(s.End)
		if !ok {
			continue
		}
		if d := end.Sub(start).Milliseconds(); d >= 0 {
			total += d
		}
	}
	return total
}

// Summarize aggregates metrics across users. The average session duration
// is weighted by session, not averaged over users. LastActive is the latest
// parsable LastActive, empty when none parse.
func (a *Aggregator) Summarize(metrics []types.UserMetrics, matchedEvents int, lastRun string) types.SegmentSummary {
	summary := types.SegmentSummary{
		Users:   len(metrics),
		Events:  matchedEvents,
		LastRun: lastRun,
	}

	var totalMs int64
	var latestMs int64
	var haveLatest bool
	for _, m := range metrics {
		summary.Sessions += m.SessionCount
		totalMs += m.TotalSessionDurationMs

		ts, ok := types.ParseTimestamp(m.LastActive)
		if !ok {
			continue
		}
		if ms := ts.UnixMilli(); !haveLatest || ms > latestMs {
			latestMs, haveLatest = ms, true
			summary.LastActive = m.LastActive
		}
	}

	if summary.Sessions > 0 {
		summary.AvgSessionDurationMs = float64(totalMs) / float64(summary.Sessions)
	}
	return summary
}
