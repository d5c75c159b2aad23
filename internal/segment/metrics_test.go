package segment

import (
	"testing"
	"time"

	"github.com/solatis/cohortkeeper/internal/types"
)

func TestUserMetrics(t *testing.T) {
	agg := NewAggregator(nil)

	events := []types.EventRecord{
		ev("u1", "a", 0, ""),
		ev("u1", "b", 10*time.Minute, ""),
		ev("u1", "c", 2*time.Hour, ""),
		ev("u1", "d", 2*time.Hour+20*time.Minute, ""),
	}

	m := agg.UserMetrics(events)
	if m.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", m.UserID)
	}
	if m.EventCount != 4 {
		t.Errorf("EventCount = %d, want 4", m.EventCount)
	}
	if m.SessionCount != 2 {
		t.Errorf("SessionCount = %d, want 2", m.SessionCount)
	}
	wantTotal := (30 * time.Minute).Milliseconds()
	if m.TotalSessionDurationMs != wantTotal {
		t.Errorf("TotalSessionDurationMs = %d, want %d", m.TotalSessionDurationMs, wantTotal)
	}
	if m.AvgSessionDurationMs != float64(wantTotal)/2 {
		t.Errorf("AvgSessionDurationMs = %v, want %v", m.AvgSessionDurationMs, float64(wantTotal)/2)
	}
	if m.LastActive != events[3].Timestamp {
		t.Errorf("LastActive = %q, want %q", m.LastActive, events[3].Timestamp)
	}
}

func TestUserMetrics_Empty(t *testing.T) {
	m := NewAggregator(nil).UserMetrics(nil)
	if m.UserID != "unknown" || m.EventCount != 0 || m.SessionCount != 0 || m.AvgSessionDurationMs != 0 {
		t.Errorf("UserMetrics(nil) = %+v", m)
	}
}

func TestUserMetrics_InvertedSessionExcludedFromDuration(t *testing.T) {
	// Explicit sessions trust input order, so an out-of-order pair yields end < start.
	events := []types.EventRecord{
		ev("u1", "a", 10*time.Minute, "s-1"),
		ev("u1", "b", 0, "s-1"),
		ev("u1", "c", 20*time.Minute, "s-2"),
		ev("u1", "d", 25*time.Minute, "s-2"),
	}

	m := NewAggregator(nil).UserMetrics(events)
	if m.SessionCount != 2 {
		t.Errorf("SessionCount = %d, want 2", m.SessionCount)
	}
	want := (5 * time.Minute).Milliseconds()
	if m.TotalSessionDurationMs != want {
		t.Errorf("TotalSessionDurationMs = %d, want %d", m.TotalSessionDurationMs, want)
	}
	if m.AvgSessionDurationMs != float64(want)/2 {
		t.Errorf("AvgSessionDurationMs = %v, want %v", m.AvgSessionDurationMs, float64(want)/2)
	}
}

func TestSummarize(t *testing.T) {
	agg := NewAggregator(nil)

	metrics := []types.UserMetrics{
		{UserID: "a", SessionCount: 1, TotalSessionDurationMs: 1000, LastActive: "2024-03-01T10:00:00.000Z"},
		{UserID: "b", SessionCount: 3, TotalSessionDurationMs: 3000, LastActive: "2024-03-05T10:00:00.000Z"},
		{UserID: "c", SessionCount: 0, LastActive: "not-a-date"},
	}

	s := agg.Summarize(metrics, 9, "2024-03-10T00:00:00.000Z")
	if s.Users != 3 || s.Events != 9 || s.Sessions != 4 {
		t.Errorf("counts = users %d events %d sessions %d", s.Users, s.Events, s.Sessions)
	}
	// Weighted by session: 4000/4, not (1000 + 1000 + 0)/3.
	if s.AvgSessionDurationMs != 1000 {
		t.Errorf("AvgSessionDurationMs = %v, want 1000", s.AvgSessionDurationMs)
	}
	if s.LastActive != "2024-03-05T10:00:00.000Z" {
		t.Errorf("LastActive = %q", s.LastActive)
	}
	if s.LastRun != "2024-03-10T00:00:00.000Z" {
		t.Errorf("LastRun = %q", s.LastRun)
	}
}

func TestSummarize_NoParsableLastActive(t *testing.T) {
	s := NewAggregator(nil).Summarize([]types.UserMetrics{{LastActive: ""}}, 0, "")
	if s.LastActive != "" {
		t.Errorf("LastActive = %q, want empty", s.LastActive)
	}
	if s.AvgSessionDurationMs != 0 {
		t.Errorf("AvgSessionDurationMs = %v, want 0", s.AvgSessionDurationMs)
	}
}
