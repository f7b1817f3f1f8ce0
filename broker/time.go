package broker

import (
	"fmt"
	"strings"
	"time"
)

// Broker timestamps come with either a compact (-0700) or an RFC 3339
// (-07:00) offset, sometimes with milliseconds.
var timeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
}

// ParseTime parses a broker timestamp, keeping the offset it was sent with.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse broker time %q", s)
}
