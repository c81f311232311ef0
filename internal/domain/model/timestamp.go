package model

import (
	"fmt"
	"time"
)

// TimestampLayout is the layout used when persisting timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ParseTimestamp parses the timestamp formats found in the local store.
// Values without a zone suffix (e.g. "2025-01-01 00:00:00", as written by
// SQLite's CURRENT_TIMESTAMP) are treated as UTC, never local time, so that
// local and remote timestamps compare on the same clock.
func ParseTimestamp(s string) (time.Time, error) {
	formats := []string{
		TimestampLayout,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
