package api

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/cohortkeeper/internal/segment"
)

// Execute evaluates an ad hoc rule, optionally refined by metric predicates.
//
// Request: {"rule": <rule>, "metric_predicates": [{"field","op","value"}]}
// Response: the SegmentExecution JSON shape.
func (s *SegmentService) Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rule, err := decodeRule(req)
	if err != nil {
		return nil, err
	}
	preds, err := decodePredicates(req)
	if err != nil {
		return nil, err
	}

	events, err := s.loadEvents(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	exec, err := s.executor.ExecuteContext(ctx, rule, events)
	if err != nil {
		return nil, statusFor(ctx, err)
	}
	if len(preds) > 0 {
		exec = segment.NewPredicateFilter(s.executor.Aggregator()).Apply(exec, preds)
	}
	s.finish(ctx, AdhocSegmentID, "Ad hoc rule", exec, started)

	resp, err := toStruct(exec)
	if err != nil {
		return nil, statusFor(ctx, err)
	}
	return resp, nil
}
