// Package store persists canonical opportunity records keyed by
// identity, with an explicit merge policy for re-ingested identities.
package store

import (
	"context"

	"github.com/afridata/afrisam/internal/record"
)

// BatchResult aggregates outcomes across one committed chunk.
type BatchResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Add folds a single outcome into the result.
func (r *BatchResult) Add(o Outcome) {
	switch o {
	case Inserted:
		r.Inserted++
	case Updated:
		r.Updated++
	case Skipped:
		r.Skipped++
	}
}

// RecordStore is the durable table keyed by identity. Implementations
// must apply Decide for every write so the merge policy cannot drift
// between call sites.
type RecordStore interface {
	// Upsert applies one record under the merge policy.
	Upsert(ctx context.Context, rec record.Canonical) (Outcome, error)

	// UpsertBatch applies a chunk of records in a single transaction.
	// A failed chunk must not corrupt previously committed chunks.
	UpsertBatch(ctx context.Context, recs []record.Canonical) (BatchResult, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// CountByRegion returns record counts grouped by region code.
	CountByRegion(ctx context.Context) (map[string]int64, error)

	// CountByYear returns record counts grouped by posted year; records
	// with no posted date are grouped under 0.
	CountByYear(ctx context.Context) (map[int]int64, error)

	// Each streams every stored record to fn in identity order; fn
	// returning an error stops the scan.
	Each(ctx context.Context, fn func(record.Canonical) error) error

	Close() error
}
