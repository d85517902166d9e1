package travel

import "time"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseTimestamp accepts ISO-8601 timestamps with or without offset, seconds or time part.
// Values without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// timestampValue reads a record field that may hold a time.Time or an ISO-8601 string.
// Anything else yields nil.
func timestampValue(v any) *time.Time {
	switch val := v.(type) {
	case time.Time:
		return &val
	case *time.Time:
		return val
	case string:
		if t, ok := ParseTimestamp(val); ok {
			return &t
		}
	}

	return nil
}
