package types

import "time"

// TimestampLayout is the canonical UTC rendering used for every timestamp the
// engine produces (millisecond precision, Z suffix).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ParseTimestamp parses an RFC 3339 instant as produced by ingestion.
// Returns false for empty or malformed input.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimestamp renders t in TimestampLayout after converting to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
