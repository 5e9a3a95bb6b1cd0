package sqlite

import "time"

// timeLayout sorts lexically in the same order as chronologically, which the
// ORDER BY on probe_history relies on
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime renders t in UTC with fixed-width nanoseconds
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the stored layout and falls back to RFC 3339
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
