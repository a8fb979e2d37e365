package identity

import (
	"testing"

	"github.com/afridata/afrisam/internal/record"
)

func TestResolveIDColumnVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  record.Raw
	}{
		{"current schema", record.Raw{"NoticeId": "abc-123"}},
		{"spaced", record.Raw{"Notice ID": "abc-123"}},
		{"hyphenated", record.Raw{"Notice-ID": "abc-123"}},
		{"document id", record.Raw{"DocumentID": "abc-123"}},
		{"solicitation number", record.Raw{"SolicitationNumber": "abc-123"}},
		{"reference number", record.Raw{"Reference Number": "abc-123"}},
		{"sol number", record.Raw{"SolNumber": "abc-123"}},
		{"contains hint", record.Raw{"Archive NoticeId Value": "abc-123"}},
	}
	for _, tt := range tests {
		id, ok := Resolve(tt.raw)
		if !ok {
			t.Errorf("%s: not resolved", tt.name)
			continue
		}
		if id != "abc-123" {
			t.Errorf("%s: id = %q, want abc-123", tt.name, id)
		}
	}
}

func TestResolveDropsMissingIDValues(t *testing.T) {
	for _, value := range []string{"", "  ", "nan", "NaN", "None", "NULL", "n/a"} {
		raw := record.Raw{"NoticeId": value, "Title": "Road works"}
		if id, ok := Resolve(raw); ok {
			t.Errorf("NoticeId=%q resolved to %q, want drop", value, id)
		}
	}
}

func TestResolveSynthesizesWithoutIDColumn(t *testing.T) {
	raw := record.Raw{
		"Title":       "Road works",
		"PostedDate":  "2003-05-12",
		"Type":        "Award Notice",
		"Link":        "https://example.invalid/1",
		"AwardNumber": "W912-03",
		"CountryCode": "KEN",
		"PopCountry":  "KENYA",
	}

	id, ok := Resolve(raw)
	if !ok {
		t.Fatal("not resolved")
	}
	if len(id) != hashLen {
		t.Fatalf("surrogate length = %d, want %d", len(id), hashLen)
	}

	// Same content, same identity, regardless of how often or in what
	// map order the row is seen.
	for i := 0; i < 10; i++ {
		again, ok := Resolve(raw)
		if !ok || again != id {
			t.Fatalf("identity not stable: %q vs %q", again, id)
		}
	}
}

func TestSynthesizeSensitivity(t *testing.T) {
	base := record.Raw{
		"Title":      "Road works",
		"PostedDate": "2003-05-12",
		"Type":       "Award Notice",
	}
	changed := record.Raw{
		"Title":      "Road works phase 2",
		"PostedDate": "2003-05-12",
		"Type":       "Award Notice",
	}
	if Synthesize(base) == Synthesize(changed) {
		t.Error("distinct rows must synthesize distinct identities")
	}

	// Fields outside the hashed subset must not affect the identity.
	annotated := record.Raw{
		"Title":       "Road works",
		"PostedDate":  "2003-05-12",
		"Type":        "Award Notice",
		"Description": "long free text that varies between exports",
	}
	if Synthesize(base) != Synthesize(annotated) {
		t.Error("non-hashed fields changed the identity")
	}
}

func TestSynthesizeDegenerateRow(t *testing.T) {
	a := record.Raw{"SomeColumn": "alpha"}
	b := record.Raw{"SomeColumn": "beta"}
	if Synthesize(a) == Synthesize(b) {
		t.Error("degenerate rows with different content collided")
	}
	if Synthesize(a) != Synthesize(a) {
		t.Error("degenerate row identity not stable")
	}
}

func TestResolvePrefersIDColumnOverSurrogate(t *testing.T) {
	raw := record.Raw{
		"NoticeId": "real-id",
		"Title":    "Road works",
	}
	id, ok := Resolve(raw)
	if !ok || id != "real-id" {
		t.Fatalf("Resolve = %q, %v, want real-id", id, ok)
	}
}
