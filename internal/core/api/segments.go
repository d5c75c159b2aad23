package api

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// RunSegment executes a predefined segment.
//
// Request: {"segment_id": "<id>"}
// Response: the SegmentExecution JSON shape.
func (s *SegmentService) RunSegment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "segment_id")
	if id == "" {
		return nil, invalidArgument("segment_id is required", nil)
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

	resp, err := toStruct(exec)
	if err != nil {
		return nil, statusFor(ctx, err)
	}
	return resp, nil
}

// ListSegments returns {"segments": [<definition>...]} in display order.
func (s *SegmentService) ListSegments(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp, err := toStruct(map[string]any{"segments": s.segments.List()})
	if err != nil {
		return nil, statusFor(ctx, err)
	}
	return resp, nil
}
