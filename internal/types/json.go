package types

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// MarshalJSON writes metricsByUser in MatchedUserIDs order. Keys not listed
// in MatchedUserIDs follow in sorted order. Decoding needs no counterpart:
// the object still reads back into a plain map.
func (e SegmentExecution) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MatchedEvents  []EventRecord  `json:"matchedEvents"`
		MatchedUserIDs []string       `json:"matchedUserIds"`
		MetricsByUser  orderedMetrics `json:"metricsByUser"`
		Summary        SegmentSummary `json:"summary"`
	}{
		MatchedEvents:  e.MatchedEvents,
		MatchedUserIDs: e.MatchedUserIDs,
		MetricsByUser:  orderedMetrics{order: e.MatchedUserIDs, byUser: e.MetricsByUser},
		Summary:        e.Summary,
	})
}

// orderedMetrics encodes a UserMetrics map with a caller-chosen key order.
type orderedMetrics struct {
	order  []string
	byUser map[string]UserMetrics
}

func (m orderedMetrics) MarshalJSON() ([]byte, error) {
	if m.byUser == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	written := make(map[string]struct{}, len(m.byUser))
	write := func(id string) error {
		key, err := json.Marshal(id)
		if err != nil {
			return err
		}
		val, err := json.Marshal(m.byUser[id])
		if err != nil {
			return err
		}
		if len(written) > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		written[id] = struct{}{}
		return nil
	}

	for _, id := range m.order {
		if _, ok := m.byUser[id]; !ok {
			continue
		}
		if _, dup := written[id]; dup {
			continue
		}
		if err := write(id); err != nil {
			return nil, err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(m.byUser)) {
		if _, done := written[id]; done {
			continue
		}
		if err := write(id); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
