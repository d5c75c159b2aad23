// internal/segment/sessionize.go
package segment

import (
	"time"

	"github.com/solatis/cohortkeeper/internal/types"
)

/*
 * Session reconstruction.
 *
 * Two mutually exclusive modes, chosen once per user:
 *
 *   - explicit: the share of events carrying a session_id is above
 *     ExplicitThreshold (default 0, so a single event with an id is enough).
 *     Events group strictly by session_id in first-seen order. An event
 *     without an id becomes its own single-event session keyed by
 *     "inf-<user>-<timestamp>". Start/End are the first/last timestamps of
 *     the group as given; input order is trusted, never re-sorted.
 *   - inferred: walk events in order and open a new session whenever the gap
 *     to the previous event exceeds InactivityGap (default 30m). A gap equal
 *     to the threshold extends the session.
 *
 * Precondition: events are one user's records sorted ascending by timestamp.
 * An unparsable timestamp in inferred mode cannot close a session, so the
 * event extends the current one.
 */

// DefaultInactivityGap is the idle time that splits inferred sessions.
const DefaultInactivityGap = 30 * time.Minute

// SessionConfig tunes session reconstruction. The zero value selects defaults.
type SessionConfig struct {
	// InactivityGap splits inferred sessions; zero or negative means DefaultInactivityGap.
	InactivityGap time.Duration

	// ExplicitThreshold is the fraction of events with a session_id above
	// which explicit mode is used. Values outside [0,1) are clamped to 0.
	ExplicitThreshold float64
}

// Sessionizer reconstructs sessions from one user's events.
type Sessionizer struct {
	gap       time.Duration
	threshold float64
}

// NewSessionizer creates a sessionizer from cfg.
func NewSessionizer(cfg SessionConfig) *Sessionizer {
	s := &Sessionizer{gap: cfg.InactivityGap, threshold: cfg.ExplicitThreshold}
	if s.gap <= 0 {
		s.gap = DefaultInactivityGap
	}
	if s.threshold < 0 || s.threshold >= 1 {
		s.threshold = 0
	}
	return s
}

// Sessionize groups events into sessions. Returns an empty slice for no events.
func (s *Sessionizer) Sessionize(events []types.EventRecord) []types.Session {
	if len(events) == 0 {
		return []types.Session{}
	}
	if s.useExplicit(events) {
		return s.explicitSessions(events)
	}
	return s.inferredSessions(events)
}

// useExplicit reports whether enough events carry a session id.
func (s *Sessionizer) useExplicit(events []types.EventRecord) bool {
	withID := 0
	for _, e := range events {
		if e.SessionID != "" {
			withID++
		}
	}
	if withID == 0 {
		return false
	}
	return float64(withID)/float64(len(events)) > s.threshold
}

func (s *Sessionizer) explicitSessions(events []types.EventRecord) []types.Session {
	index := make(map[string]int)
	sessions := make([]types.Session, 0)

	for _, e := range events {
		key := e.SessionID
		if key == "" {
			key = syntheticSessionID(e)
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(sessions)
			sessions = append(sessions, types.Session{
				SessionID: key,
				Start:     e.Timestamp,
				End:       e.Timestamp,
				Events:    []types.EventRecord{e},
			})
			continue
		}
		sessions[i].Events = append(sessions[i].Events, e)
		sessions[i].End = e.Timestamp
	}
	return sessions
}

func (s *Sessionizer) inferredSessions(events []types.EventRecord) []types.Session {
	sessions := make([]types.Session, 0)
	var prev time.Time
	var prevOK bool

	for _, e := range events {
		ts, ok := types.ParseTimestamp(e.Timestamp)

		split := len(sessions) == 0
		if !split && ok && prevOK && ts.Sub(prev) > s.gap {
			split = true
		}

		if split {
			sessions = append(sessions, types.Session{
				SessionID: syntheticSessionID(e),
				Start:     e.Timestamp,
				End:       e.Timestamp,
				Events:    []types.EventRecord{e},
			})
		} else {
			cur := &sessions[len(sessions)-1]
			cur.Events = append(cur.Events, e)
			cur.End = e.Timestamp
		}

		if ok {
			prev, prevOK = ts, true
		}
	}
	return sessions
}

func syntheticSessionID(e types.EventRecord) string {
	return "inf-" + e.UserID + "-" + e.Timestamp
}
