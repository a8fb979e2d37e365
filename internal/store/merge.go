package store

import "time"

// Outcome reports what an upsert did.
type Outcome int

const (
	// Inserted means the identity was new and a row was created.
	Inserted Outcome = iota
	// Updated means an existing row was overwritten with a strictly
	// newer incoming record.
	Updated
	// Skipped means an existing row was left untouched.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Decide is the single merge policy for re-ingested identities, applied
// uniformly at every write site so no separate de-duplication pass is
// ever needed:
//
//   - identity absent from the store           -> Inserted
//   - incoming date nil                        -> Skipped (never replace
//     a dated row with an undated one)
//   - stored date nil, incoming non-nil        -> Updated
//   - incoming strictly after stored           -> Updated
//   - otherwise                                -> Skipped
func Decide(exists bool, stored, incoming *time.Time) Outcome {
	if !exists {
		return Inserted
	}
	if incoming == nil {
		return Skipped
	}
	if stored == nil || incoming.After(*stored) {
		return Updated
	}
	return Skipped
}
