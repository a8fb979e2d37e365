package record

import (
	"testing"
	"time"
)

func TestRawGetTrims(t *testing.T) {
	raw := Raw{"Title": "  Road works  ", "Link": ""}
	if got := raw.Get("Title"); got != "Road works" {
		t.Errorf("Get(Title) = %q", got)
	}
	if got := raw.Get("Link"); got != "" {
		t.Errorf("Get(Link) = %q", got)
	}
	if got := raw.Get("Missing"); got != "" {
		t.Errorf("Get(Missing) = %q", got)
	}
}

func TestNewCanonicalRetainsAllColumns(t *testing.T) {
	posted := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	raw := Raw{
		"Title":      "Road works",
		"PopCountry": "KENYA",
		"Unretained": "dropped",
		"Award$":     "1000000",
	}

	rec := NewCanonical("n1", "KEN", "KENYA (KEN)", &posted, raw)

	if len(rec.Fields) != len(KeepColumns) {
		t.Fatalf("fields = %d, want %d", len(rec.Fields), len(KeepColumns))
	}
	if rec.Fields["Title"] != "Road works" {
		t.Errorf("Title = %q", rec.Fields["Title"])
	}
	if rec.Fields["Award$"] != "1000000" {
		t.Errorf("Award$ = %q", rec.Fields["Award$"])
	}
	// Columns absent from the source schema materialize as empty.
	if v, ok := rec.Fields["Awardee"]; !ok || v != "" {
		t.Errorf("Awardee = %q, %v", v, ok)
	}
	// Non-retained columns never reach the canonical record.
	if _, ok := rec.Fields["Unretained"]; ok {
		t.Error("unretained column kept")
	}
}
