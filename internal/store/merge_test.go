package store

import (
	"testing"
	"time"
)

func day(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		exists   bool
		stored   *time.Time
		incoming *time.Time
		want     Outcome
	}{
		{"new identity", false, nil, day(2024, 3, 4), Inserted},
		{"new identity undated", false, nil, nil, Inserted},
		{"strictly newer wins", true, day(2024, 3, 4), day(2024, 3, 5), Updated},
		{"same date skipped", true, day(2024, 3, 4), day(2024, 3, 4), Skipped},
		{"older skipped", true, day(2024, 3, 4), day(2024, 3, 3), Skipped},
		{"undated never overwrites", true, day(2024, 3, 4), nil, Skipped},
		{"undated never overwrites undated", true, nil, nil, Skipped},
		{"dated replaces undated", true, nil, day(2024, 3, 4), Updated},
	}
	for _, tt := range tests {
		if got := Decide(tt.exists, tt.stored, tt.incoming); got != tt.want {
			t.Errorf("%s: Decide = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestDecideMonotonic(t *testing.T) {
	// Replaying any sequence of decisions against the same identity can
	// only move the stored date forward.
	stored := day(2024, 1, 1)
	incoming := []*time.Time{
		day(2023, 12, 31), day(2024, 1, 1), nil,
		day(2024, 2, 1), day(2024, 1, 15), day(2024, 2, 1),
	}
	for _, in := range incoming {
		if Decide(true, stored, in) == Updated {
			if in == nil || !in.After(*stored) {
				t.Fatalf("non-monotonic update: stored=%v incoming=%v", stored, in)
			}
			stored = in
		}
	}
	if !stored.Equal(*day(2024, 2, 1)) {
		t.Fatalf("final stored = %v, want 2024-02-01", stored)
	}
}

func TestBatchResultAdd(t *testing.T) {
	var r BatchResult
	for _, o := range []Outcome{Inserted, Inserted, Updated, Skipped, Skipped, Skipped} {
		r.Add(o)
	}
	if r.Inserted != 2 || r.Updated != 1 || r.Skipped != 3 {
		t.Fatalf("unexpected result: %+v", r)
	}
}
