package utils

import (
	"fmt"
	"time"
)

// logTimestampLayouts matches the timestamp shapes found in vendor logs.
var logTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
	"01/02/06 15:04:05",
}

// ParseLogTimestamp parses a timestamp extracted from a log line. Vendor logs
// carry no zone, so the result is in UTC.
func ParseLogTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range logTimestampLayouts {
		if t, err := time.ParseInLocation(layout, collapseSpaces(value), time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time: unrecognised timestamp %q", value)
}

// TimeSpan returns the earliest and latest parseable timestamps in values.
func TimeSpan(values []string) (first, last time.Time, ok bool) {
	for _, v := range values {
		t, err := ParseLogTimestamp(v)
		if err != nil {
			continue
		}
		if !ok || t.Before(first) {
			first = t
		}
		if !ok || t.After(last) {
			last = t
		}
		ok = true
	}
	return first, last, ok
}

func collapseSpaces(value string) string {
	out := make([]byte, 0, len(value))
	space := false
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == ' ' || c == '\t' {
			if !space {
				out = append(out, ' ')
			}
			space = true
			continue
		}
		space = false
		out = append(out, c)
	}
	return string(out)
}
