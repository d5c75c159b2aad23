package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/cohortkeeper/internal/core/metrics"
	"github.com/solatis/cohortkeeper/internal/export"
)

// ExportCohort runs a predefined segment and delivers it as a cohort.
//
// Request: {"segment_id": "<id>", "name": "<cohort name>"}
// Response: {"delivered": <bool>, "cohort": <payload>}
//
// Without a configured endpoint the payload is returned undelivered.
func (s *SegmentService) ExportCohort(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "segment_id")
	if id == "" {
		return nil, invalidArgument("segment_id is required", nil)
	}
	name := stringField(req, "name")
	if name == "" {
		name = s.cohortName
	}
	def, err := s.segments.Lookup(id)
	if err != nil {
		return nil, statusFor(ctx, err)
	}

	events, err := s.loadEvents(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	exec, err := s.executor.RunDefinition(ctx, def, events)
	if err != nil {
		return nil, statusFor(ctx, err)
	}
	s.finish(ctx, def.ID, def.Label, exec, started)

	payload := export.ToCohort(exec, name)
	delivered := s.exporter.Delivers()
	if !delivered {
		s.metrics.CohortExported(metrics.OutcomeSkipped)
	} else if err := s.exporter.Export(ctx, payload); err != nil {
		s.metrics.CohortExported(metrics.OutcomeFailed)
		return nil, exportStatus(ctx, err)
	} else {
		s.metrics.CohortExported(metrics.OutcomeDelivered)
		s.logger.InfoContext(ctx, "cohort exported", "segment_id", def.ID, "name", name, "count", payload.Count)
	}

	resp, err := toStruct(map[string]any{"delivered": delivered, "cohort": payload})
	if err != nil {
		return nil, statusFor(ctx, err)
	}
	return resp, nil
}

// exportStatus maps delivery failures. A missing transport is a server
// precondition; a rejected delivery is reported as UNAVAILABLE with the
// upstream status in the message.
func exportStatus(ctx context.Context, err error) error {
	var statusErr *export.StatusError
	switch {
	case errors.Is(err, export.ErrTransportUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &statusErr):
		return status.Error(codes.Unavailable, fmt.Sprintf("cohort endpoint returned %d", statusErr.StatusCode))
	default:
		return statusFor(ctx, err)
	}
}
