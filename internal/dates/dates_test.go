package dates

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-04", date(2024, time.March, 4)},
		{"2024-03-04T10:15:00-05:00", date(2024, time.March, 4)},
		{"2024-03-04 10:15:00", date(2024, time.March, 4)},
		{"03/04/2024", date(2024, time.March, 4)}, // month-first
		{"3/4/2024", date(2024, time.March, 4)},
		{"12/31/1999", date(1999, time.December, 31)},
		{"03/04/24", date(2024, time.March, 4)}, // 2-digit year
		{"2024/03/04", date(2024, time.March, 4)},
		{"Mar 4, 2024", date(2024, time.March, 4)},
		{"4 Mar 2024", date(2024, time.March, 4)},
		{"  2024-03-04  ", date(2024, time.March, 4)},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		if got == nil {
			t.Errorf("Normalize(%q) = nil, want %s", tt.in, tt.want)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Normalize(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeUnparseable(t *testing.T) {
	for _, in := range []string{
		"", "   ", "nan", "TBD", "unknown",
		"13/32/2024", // impossible month-first date
		"2024-13-01",
		"not a date at all",
	} {
		if got := Normalize(in); got != nil {
			t.Errorf("Normalize(%q) = %s, want nil", in, got)
		}
	}
}

func TestNormalizeUTCMidnight(t *testing.T) {
	got := Normalize("2024-03-04T23:59:59+14:00")
	if got == nil {
		t.Fatal("Normalize returned nil")
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("expected midnight, got %s", got)
	}
	if got.Location() != time.UTC {
		t.Errorf("expected UTC, got %s", got.Location())
	}
	// The calendar day must come from the date part, never shifted by
	// the zone offset.
	if got.Day() != 4 {
		t.Errorf("expected day 4, got %d", got.Day())
	}
}
