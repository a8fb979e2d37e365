// Package identity resolves the stable deduplication key for an
// opportunity row. Current extracts carry a NoticeId column; historical
// archives use a long tail of identifier column spellings, and the
// oldest have none at all, in which case a surrogate is synthesized by
// hashing semantically stable fields.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/afridata/afrisam/internal/record"
)

// idColumns is the closed set of normalized identifier-column names seen
// across historical exports, tried in this order.
var idColumns = []string{
	"noticeid",
	"noticeidnumber",
	"noticeidno",
	"documentid",
	"solicitationnumber",
	"solicitationid",
	"opportunityid",
	"referencenumber",
	"referenceid",
	"refid",
	"solnumber",
}

// idColumnHints catches odd exports whose identifier column merely
// contains one of these fragments after normalization.
var idColumnHints = []string{"noticeid", "documentid", "opportunityid"}

// hashFields is the fixed ordered subset of fields hashed into a
// surrogate identity when no identifier column exists.
var hashFields = []string{
	"Title",
	"PostedDate",
	"Type",
	"Link",
	"AwardNumber",
	"CountryCode",
	"PopCountry",
}

// hashLen truncates the hex digest; 24 hex chars (96 bits) keeps the
// accidental-collision probability negligible at this corpus size.
const hashLen = 24

var missingTokens = map[string]bool{
	"": true, "nan": true, "none": true, "null": true, "n/a": true,
}

// Resolve returns the stable identity for a raw row. When the row's
// schema carries an identifier column, its trimmed value is the
// identity; a row whose identifier value is empty or a missing-value
// token yields ok=false and is dropped. When no identifier column
// exists, a deterministic surrogate is synthesized and ok is always
// true.
func Resolve(raw record.Raw) (string, bool) {
	if col, found := findIDColumn(raw); found {
		value := strings.TrimSpace(raw[col])
		if missingTokens[strings.ToLower(value)] {
			return "", false
		}
		return value, true
	}
	return Synthesize(raw), true
}

// Synthesize produces a deterministic surrogate identity from the fixed
// field subset. Byte-identical rows always hash to the same identity.
func Synthesize(raw record.Raw) string {
	parts := make([]string, len(hashFields))
	for i, field := range hashFields {
		parts[i] = raw.Get(field)
	}
	joined := strings.Join(parts, "|")
	if strings.Trim(joined, "|") == "" {
		// Degenerate row with none of the hash fields populated; fall
		// back to hashing everything so distinct rows stay distinct.
		joined = joinAll(raw)
	}
	sum := sha1.Sum([]byte(joined))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// findIDColumn locates the identifier column for this schema, if any.
// Column names are normalized (lower-cased, non-alphanumerics stripped)
// before matching so "Notice ID", "Notice-ID" and "NoticeId" all
// resolve identically.
func findIDColumn(raw record.Raw) (string, bool) {
	normalized := make(map[string]string, len(raw))
	for col := range raw {
		normalized[normalizeColumn(col)] = col
	}
	for _, want := range idColumns {
		if col, ok := normalized[want]; ok {
			return col, true
		}
	}
	// Looser pass over sorted keys for deterministic selection.
	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, hint := range idColumnHints {
			if strings.Contains(key, hint) {
				return normalized[key], true
			}
		}
	}
	return "", false
}

func normalizeColumn(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func joinAll(raw record.Raw) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+raw[k])
	}
	return strings.Join(parts, "|")
}
