package dataset

import (
	"time"
)

// timestampLayouts are the Socrata floating-timestamp formats, most common
// first. Floating timestamps carry no zone; values are taken as UTC.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000000",
	time.RFC3339,
}

// ParseTimestamp parses a raw field into a timestamp. It accepts string
// values in any known layout and passes through time.Time values unchanged;
// anything else reports ok=false, the row-level equivalent of null.
func ParseTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		if v == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
