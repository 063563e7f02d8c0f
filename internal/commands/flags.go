package commands

import (
	"strings"
	"time"

	"edger/internal/service"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Accepted layouts for --start.
var startLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
}

// parseStart parses a --start value in loc. A bare "15:04" means today.
func parseStart(s string, loc *time.Location, today time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, usageErrorf("--start is required")
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		d := today.In(loc)
		return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, usageErrorf("invalid start time: %s (want YYYY-MM-DD HH:MM or HH:MM)", s)
}

// parseDay parses a --date value in loc; empty means today.
func parseDay(s string, loc *time.Location, today time.Time) (time.Time, error) {
	if s == "" {
		return today.In(loc), nil
	}
	t, err := time.ParseInLocation(service.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, usageErrorf("invalid date: %s (want YYYY-MM-DD)", s)
	}
	return t, nil
}
