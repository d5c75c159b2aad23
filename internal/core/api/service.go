// Package api provides the gRPC SegmentService.
//
// Messages are google.protobuf.Struct values whose fields follow the JSON
// shape of the engine types, so clients need no generated stubs beyond the
// well-known types.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solatis/cohortkeeper/internal/core/metrics"
	"github.com/solatis/cohortkeeper/internal/export"
	"github.com/solatis/cohortkeeper/internal/segment"
	"github.com/solatis/cohortkeeper/internal/store"
	"github.com/solatis/cohortkeeper/internal/types"
)

// AdhocSegmentID labels executions of rules submitted directly to Execute.
const AdhocSegmentID = "adhoc"

// EventSource supplies the dataset for each request. *store.Store satisfies it.
type EventSource interface {
	LoadEvents(ctx context.Context) ([]types.EventRecord, error)
}

// ExecutionLog persists execution summaries. *store.Store satisfies it.
type ExecutionLog interface {
	RecordExecution(ctx context.Context, rec store.ExecutionRecord) error
}

// Deps are the collaborators of SegmentService. Only Executor and Events
// are required. Without an Exporter, ExportCohort builds payloads but never
// delivers them.
type Deps struct {
	Executor   *segment.Executor
	Segments   *segment.Registry
	Events     EventSource
	Log        ExecutionLog
	Exporter   *export.Exporter
	CohortName string
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// SegmentService implements SegmentServiceServer.
// Thin orchestration layer delegating to segment and store packages.
type SegmentService struct {
	executor   *segment.Executor
	segments   *segment.Registry
	events     EventSource
	log        ExecutionLog
	exporter   *export.Exporter
	cohortName string
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewSegmentService creates service instance with dependencies.
func NewSegmentService(deps Deps) (*SegmentService, error) {
	if deps.Executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event source cannot be nil")
	}
	if deps.Segments == nil {
		deps.Segments = segment.Predefined(deps.Executor.Now)
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewExporter(export.Config{}, nil)
	}
	if deps.CohortName == "" {
		deps.CohortName = "cohort"
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &SegmentService{
		executor:   deps.Executor,
		segments:   deps.Segments,
		events:     deps.Events,
		log:        deps.Log,
		exporter:   deps.Exporter,
		cohortName: deps.CohortName,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}, nil
}

// loadEvents reads the dataset, mapping failures to UNAVAILABLE.
func (s *SegmentService) loadEvents(ctx context.Context) ([]types.EventRecord, error) {
	events, err := s.events.LoadEvents(ctx)
	if err != nil {
		return nil, statusFor(ctx, fmt.Errorf("failed to load events: %w", err))
	}
	return events, nil
}

// finish records metrics and the execution log entry for one run.
// Execution log failures are logged, never returned: the caller already has
// a complete result.
func (s *SegmentService) finish(ctx context.Context, segmentID, label string, exec types.SegmentExecution, started time.Time) {
	s.metrics.ObserveExecution(segmentID, exec.Summary.Users, time.Since(started))

	if s.log == nil {
		return
	}
	rec := store.NewExecutionRecord(segmentID, label, exec.Summary)
	if err := s.log.RecordExecution(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "execution log write failed",
			"segment_id", segmentID,
			"execution_id", rec.ID,
			"error", err,
		)
	}
}
