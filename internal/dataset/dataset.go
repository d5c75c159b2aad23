// Package dataset loads event data for the segmentation engine.
//
// Input files hold a JSON array in one of two shapes:
//
//   - event records: [{"user_id","event","timestamp","session_id","properties"}]
//   - raw users:     [{"user_id","plan_tier","signup_date","last_active_at","events":[...]}]
//
// Raw users are flattened into one record per event, with the user
// attributes merged under each event's own fields in properties. Either way
// the output is normalized: timestamps rewritten to canonical UTC, rows
// missing user_id, event or a parsable timestamp dropped, then stably sorted
// ascending by time. That satisfies the engine's input contract.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/solatis/cohortkeeper/internal/rules"
	"github.com/solatis/cohortkeeper/internal/types"
)

// RawUser is one user with nested events, as exported by product analytics.
type RawUser struct {
	UserID       string           `json:"user_id"`
	PlanTier     any              `json:"plan_tier"`
	SignupDate   any              `json:"signup_date"`
	LastActiveAt any              `json:"last_active_at"`
	Events       []map[string]any `json:"events"`
}

// Load reads and normalizes the dataset at path.
func Load(path string) ([]types.EventRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	records, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return records, nil
}

// Decode parses either supported shape and normalizes the result.
func Decode(data []byte) ([]types.EventRecord, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if len(items) == 0 {
		return []types.EventRecord{}, nil
	}

	if isRawUsers(items[0]) {
		users := make([]RawUser, 0, len(items))
		for i, raw := range items {
			var u RawUser
			if err := json.Unmarshal(raw, &u); err != nil {
				return nil, fmt.Errorf("decode user %d: %w", i, err)
			}
			users = append(users, u)
		}
		return NormalizeUsers(users), nil
	}

	records := make([]types.EventRecord, 0, len(items))
	for i, raw := range items {
		var rec types.EventRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return NormalizeRecords(records), nil
}

// isRawUsers reports whether the first array element carries nested events.
func isRawUsers(first json.RawMessage) bool {
	var probe struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(first, &probe); err != nil {
		return false
	}
	trimmed := bytes.TrimSpace(probe.Events)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// NormalizeUsers flattens raw users into normalized event records.
// A nested event's session_id is lifted to the record; every other event
// field except event and timestamp lands in properties, overriding the user
// attributes of the same name.
func NormalizeUsers(users []RawUser) []types.EventRecord {
	records := make([]types.EventRecord, 0)
	for _, u := range users {
		if u.UserID == "" {
			continue
		}
		for _, ev := range u.Events {
			name, ok := ev["event"].(string)
			if !ok {
				continue
			}
			ts, _ := ev["timestamp"].(string)
			sessionID, _ := ev["session_id"].(string)

			props := types.Properties{
				"plan_tier":      u.PlanTier,
				"signup_date":    u.SignupDate,
				"last_active_at": u.LastActiveAt,
			}
			for k, v := range ev {
				switch k {
				case "event", "timestamp", "session_id":
					continue
				}
				props[k] = v
			}

			records = append(records, types.EventRecord{
				UserID:     u.UserID,
				Event:      name,
				Timestamp:  ts,
				SessionID:  sessionID,
				Properties: props,
			})
		}
	}
	return NormalizeRecords(records)
}

// NormalizeRecords rewrites timestamps to canonical UTC, drops incomplete
// rows and stably sorts by time. The input slice is not modified.
func NormalizeRecords(records []types.EventRecord) []types.EventRecord {
	type keyed struct {
		rec types.EventRecord
		ms  int64
	}

	rows := make([]keyed, 0, len(records))
	for _, rec := range records {
		t, ok := rules.ParseDate(rec.Timestamp)
		if !ok || rec.UserID == "" || rec.Event == "" {
			continue
		}
		rec.Timestamp = types.FormatTimestamp(t)
		rows = append(rows, keyed{rec: rec, ms: t.UnixMilli()})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ms < rows[j].ms })

	out := make([]types.EventRecord, len(rows))
	for i, r := range rows {
		out[i] = r.rec
	}
	return out
}

// ToUTC renders any parsable timestamp as canonical UTC, or "" when it does
// not parse.
func ToUTC(s string) string {
	t, ok := rules.ParseDate(s)
	if !ok {
		return ""
	}
	return types.FormatTimestamp(t)
}
