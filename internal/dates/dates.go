// Package dates normalizes the heterogeneous PostedDate strings found
// across extract years into a canonical calendar date.
package dates

import (
	"regexp"
	"strings"
	"time"
)

var (
	isoDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoDateTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[T ]`)
	slashDate   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)
)

// fallbackLayouts are tried last, in order, for formats seen in odd
// archive years.
var fallbackLayouts = []string{
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	time.RFC3339,
}

// Normalize converts a raw date string into a UTC calendar date, or nil
// when the input is unparseable. It never returns an error or a partial
// date.
//
// Slash dates are read month-first (03/04/2024 is March 4). The source
// convention could not be confirmed from the data alone; day-first is
// deliberately never attempted.
func Normalize(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	// Already canonical.
	if isoDate.MatchString(s) {
		return parseDay("2006-01-02", s)
	}

	// Canonical date with a trailing time component; keep the date part.
	if m := isoDateTime.FindStringSubmatch(s); m != nil {
		return parseDay("2006-01-02", m[1])
	}

	// Locale slash date, 2- or 4-digit year, month-first.
	if m := slashDate.FindStringSubmatch(s); m != nil {
		layout := "1/2/2006"
		if len(m[3]) == 2 {
			layout = "1/2/06"
		}
		return parseDay(layout, s)
	}

	// Best-effort last resort.
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t)
		}
	}
	return nil
}

func parseDay(layout, s string) *time.Time {
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	return day(t)
}

func day(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
