package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/cohortkeeper/internal/types"
)

func sampleExecution() types.SegmentExecution {
	return types.SegmentExecution{
		MatchedEvents:  []types.EventRecord{{UserID: "u1"}, {UserID: `acme, "inc"`}},
		MatchedUserIDs: []string{"u1", `acme, "inc"`},
		MetricsByUser: map[string]types.UserMetrics{
			"u1": {
				UserID: "u1", EventCount: 3, SessionCount: 2,
				AvgSessionDurationMs: 1500.5, LastActive: "2024-03-01T10:00:00.000Z",
			},
			`acme, "inc"`: {
				UserID: `acme, "inc"`, EventCount: 1, SessionCount: 1,
				AvgSessionDurationMs: 0, LastActive: "2024-03-02T10:00:00.000Z",
			},
		},
		Summary: types.SegmentSummary{
			Users: 2, Events: 2, Sessions: 3, AvgSessionDurationMs: 1000.3333,
			LastActive: "2024-03-02T10:00:00.000Z", LastRun: "2024-03-03T00:00:00.000Z",
		},
	}
}

func TestToCSV(t *testing.T) {
	out := ToCSV(sampleExecution())

	want := strings.Join([]string{
		"user_id,eventCount,sessionCount,avgSessionDurationMs,lastActive",
		"u1,3,2,1500.5,2024-03-01T10:00:00.000Z",
		`"acme, ""inc""",1,1,0,2024-03-02T10:00:00.000Z`,
	}, "\n")
	assert.Equal(t, want, out)
	assert.False(t, strings.HasSuffix(out, "\n"), "no trailing newline")
}

func TestToCSV_Empty(t *testing.T) {
	out := ToCSV(types.SegmentExecution{})
	assert.Equal(t, "user_id,eventCount,sessionCount,avgSessionDurationMs,lastActive", out)
}

func TestEscapeCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "plain", want: "plain"},
		{in: "a,b", want: `"a,b"`},
		{in: `say "hi"`, want: `"say ""hi"""`},
		{in: "two\nlines", want: "\"two\nlines\""},
		{in: " padded ", want: " padded "},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeCell(tt.in), "escapeCell(%q)", tt.in)
	}
}

// The projection must parse back with a standard CSV reader: one data row per
// matched user, each user_id cell a member of MatchedUserIDs.
func TestToCSV_RoundTrip(t *testing.T) {
	exec := sampleExecution()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exec))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(exec.MatchedUserIDs)+1)

	assert.Equal(t, csvHeader, records[0])
	for _, row := range records[1:] {
		assert.Contains(t, exec.MatchedUserIDs, row[0])
	}
}
