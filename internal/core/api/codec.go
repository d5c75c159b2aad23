package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/cohortkeeper/internal/rules"
	"github.com/solatis/cohortkeeper/internal/segment"
)

// toStruct converts v to a Struct through its JSON encoding, so field names
// match the JSON tags of the engine types.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

// field returns the request field name re-encoded as JSON, or nil when the
// field is absent or null.
func field(req *structpb.Struct, name string) ([]byte, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	return v.MarshalJSON()
}

// decodeRule reads and validates the "rule" field.
func decodeRule(req *structpb.Struct) (rules.Node, error) {
	raw, err := field(req, "rule")
	if err != nil {
		return nil, invalidArgument("rule is not encodable", err)
	}
	if raw == nil {
		return nil, invalidArgument("rule is required", nil)
	}
	rule, err := rules.ParseRule(raw)
	if err != nil {
		return nil, invalidArgument("malformed rule", err)
	}
	if err := rules.Validate(rule); err != nil {
		return nil, invalidArgument("invalid rule", err)
	}
	return rule, nil
}

// decodePredicates reads and validates the optional "metric_predicates" field.
func decodePredicates(req *structpb.Struct) ([]segment.MetricPredicate, error) {
	raw, err := field(req, "metric_predicates")
	if err != nil {
		return nil, invalidArgument("metric_predicates is not encodable", err)
	}
	if raw == nil {
		return nil, nil
	}
	var preds []segment.MetricPredicate
	if err := json.Unmarshal(raw, &preds); err != nil {
		return nil, invalidArgument("malformed metric_predicates", err)
	}
	for i, p := range preds {
		if err := p.Validate(); err != nil {
			return nil, invalidArgument(fmt.Sprintf("metric_predicates[%d]", i), err)
		}
	}
	return preds, nil
}

// stringField returns a string field or "" when absent or not a string.
func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}
