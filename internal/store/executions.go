package store

import (
	"context"
	"fmt"

	"github.com/solatis/cohortkeeper/internal/types"
)

// ExecutionRecord is one logged segment run. Only the summary is kept; the
// matched events can always be recomputed from the event store.
type ExecutionRecord struct {
	ID                   types.ExecutionID `db:"execution_id" json:"id"`
	SegmentID            string            `db:"segment_id" json:"segmentId"`
	Label                string            `db:"label" json:"label"`
	Users                int               `db:"users" json:"users"`
	Events               int               `db:"events" json:"events"`
	Sessions             int               `db:"sessions" json:"sessions"`
	AvgSessionDurationMs float64           `db:"avg_session_duration_ms" json:"avgSessionDurationMs"`
	LastActive           string            `db:"last_active" json:"lastActive"`
	LastRun              string            `db:"last_run" json:"lastRun"`
}

// NewExecutionRecord builds a log entry for a run of segmentID.
func NewExecutionRecord(segmentID, label string, summary types.SegmentSummary) ExecutionRecord {
	return ExecutionRecord{
		ID:                   types.NewExecutionID(),
		SegmentID:            segmentID,
		Label:                label,
		Users:                summary.Users,
		Events:               summary.Events,
		Sessions:             summary.Sessions,
		AvgSessionDurationMs: summary.AvgSessionDurationMs,
		LastActive:           summary.LastActive,
		LastRun:              summary.LastRun,
	}
}

// RecordExecution appends rec to the execution log.
func (s *Store) RecordExecution(ctx context.Context, rec ExecutionRecord) error {
	_, err := s.queries.Exec(ctx, "insert-execution",
		string(rec.ID), rec.SegmentID, rec.Label, rec.Users, rec.Events, rec.Sessions,
		rec.AvgSessionDurationMs, rec.LastActive, rec.LastRun,
	)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// ListExecutions returns the most recent executions, newest first. An empty
// segmentID lists all segments; limit <= 0 means DefaultListLimit.
func (s *Store) ListExecutions(ctx context.Context, segmentID string, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	records := make([]ExecutionRecord, 0)
	var err error
	if segmentID == "" {
		err = s.queries.Select(ctx, "list-executions", &records, limit)
	} else {
		err = s.queries.Select(ctx, "list-executions-by-segment", &records, segmentID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return records, nil
}
