package export

import (
	"math"

	"github.com/solatis/cohortkeeper/internal/types"
)

// CohortPayload is the body posted to the audience-management service.
type CohortPayload struct {
	Name        string         `json:"name"`
	GeneratedAt string         `json:"generated_at"`
	Count       int            `json:"count"`
	Summary     CohortSummary  `json:"summary"`
	People      []CohortPerson `json:"people"`
}

// CohortSummary is the subset of SegmentSummary carried in the payload.
type CohortSummary struct {
	Sessions             int     `json:"sessions"`
	AvgSessionDurationMs float64 `json:"avgSessionDurationMs"`
	LastActive           string  `json:"lastActive"`
}

// CohortPerson is one exported user.
type CohortPerson struct {
	DistinctID string           `json:"distinct_id"`
	Properties PersonProperties `json:"properties"`
}

// PersonProperties are the per-user metrics attached to a CohortPerson.
type PersonProperties struct {
	LastActive           string `json:"last_active"`
	SessionCount         int    `json:"session_count"`
	EventCount           int    `json:"event_count"`
	AvgSessionDurationMs int64  `json:"avg_session_duration_ms"`
}

// ToCohort builds the payload for exec. GeneratedAt is the execution's
// lastRun; per-person average durations round half up to whole milliseconds.
func ToCohort(exec types.SegmentExecution, name string) CohortPayload {
	people := make([]CohortPerson, 0, len(exec.MatchedUserIDs))
	for _, id := range exec.MatchedUserIDs {
		m := exec.MetricsByUser[id]
		people = append(people, CohortPerson{
			DistinctID: id,
			Properties: PersonProperties{
				LastActive:           m.LastActive,
				SessionCount:         m.SessionCount,
				EventCount:           m.EventCount,
				AvgSessionDurationMs: int64(math.Floor(m.AvgSessionDurationMs + 0.5)),
			},
		})
	}

	return CohortPayload{
		Name:        name,
		GeneratedAt: exec.Summary.LastRun,
		Count:       len(people),
		Summary: CohortSummary{
			Sessions:             exec.Summary.Sessions,
			AvgSessionDurationMs: exec.Summary.AvgSessionDurationMs,
			LastActive:           exec.Summary.LastActive,
		},
		People: people,
	}
}
