// Package record defines the raw and canonical record shapes that flow
// through the ingestion pipeline.
package record

import (
	"strings"
	"time"
)

// KeepColumns is the fixed list of source columns retained in the store,
// in schema order. Column names match the SAM.gov extract documentation
// exactly; archives from different years may omit any of them.
var KeepColumns = []string{
	"Title",
	"Department/Ind.Agency",
	"Sub-Tier",
	"Office",
	"PostedDate",
	"Type",
	"PopCountry",
	"AwardNumber",
	"AwardDate",
	"Award$",
	"Awardee",
	"PrimaryContactTitle",
	"PrimaryContactFullName",
	"PrimaryContactEmail",
	"PrimaryContactPhone",
	"OrganizationType",
	"CountryCode",
	"Link",
	"Description",
}

// Raw is one row of the source extract: source column name to string value.
// The schema varies release to release, so lookups go through Get which
// tolerates absent columns.
type Raw map[string]string

// Get returns the trimmed value for a column, or "" when the column is
// absent from this release's schema.
func (r Raw) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// Canonical is the persisted entity. Identity is the unique store key;
// RegionCode is always a member of the African country set and
// RegionDisplay is derived from it, never independent truth.
type Canonical struct {
	Identity      string
	RegionCode    string
	RegionDisplay string
	PostedAt      *time.Time // nil when the source date was unparseable
	Fields        map[string]string
}

// NewCanonical builds a Canonical with every retained column present,
// defaulting absent source columns to the empty string.
func NewCanonical(identity, regionCode, regionDisplay string, postedAt *time.Time, raw Raw) Canonical {
	fields := make(map[string]string, len(KeepColumns))
	for _, col := range KeepColumns {
		fields[col] = raw.Get(col)
	}
	return Canonical{
		Identity:      identity,
		RegionCode:    regionCode,
		RegionDisplay: regionDisplay,
		PostedAt:      postedAt,
		Fields:        fields,
	}
}
