package dbx

import (
	"database/sql"
	"time"
)

// TimeLayout is how timestamps are stored in TEXT columns: UTC, RFC 3339,
// so lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime renders t in UTC with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// ParseNullTime parses a nullable timestamp column. NULL yields nil.
func ParseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := ParseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
