// Package export projects segment executions for downstream consumers:
// a per-user CSV table and a cohort payload posted to an audience service.
package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/solatis/cohortkeeper/internal/types"
)

// csvHeader is the fixed column order of the projection.
var csvHeader = []string{"user_id", "eventCount", "sessionCount", "avgSessionDurationMs", "lastActive"}

// ToCSV renders one row per matched user in MatchedUserIDs order.
// Lines are joined with "\n" and there is no trailing newline.
func ToCSV(exec types.SegmentExecution) string {
	lines := make([]string, 0, len(exec.MatchedUserIDs)+1)
	lines = append(lines, strings.Join(csvHeader, ","))

	for _, id := range exec.MatchedUserIDs {
		m := exec.MetricsByUser[id]
		row := []string{
			id,
			strconv.Itoa(m.EventCount),
			strconv.Itoa(m.SessionCount),
			strconv.FormatFloat(m.AvgSessionDurationMs, 'f', -1, 64),
			m.LastActive,
		}
		for i, cell := range row {
			row[i] = escapeCell(cell)
		}
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes ToCSV(exec) to w.
func WriteCSV(w io.Writer, exec types.SegmentExecution) error {
	_, err := io.WriteString(w, ToCSV(exec))
	return err
}

// escapeCell quotes cells containing a comma, quote or newline, doubling
// embedded quotes. Other cells pass through untouched.
func escapeCell(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
