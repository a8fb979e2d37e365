package ingest

// FileReport summarizes one source file's pass through the pipeline.
type FileReport struct {
	Source string

	RowsRead  int
	Malformed int
	Chunks    int

	DroppedNoRegion   int
	DroppedNoIdentity int

	Inserted int
	Updated  int
	Skipped  int
}

// Kept is the number of rows that survived filtering and reached the
// store.
func (r FileReport) Kept() int {
	return r.Inserted + r.Updated + r.Skipped
}

// RunReport aggregates one pipeline run.
type RunReport struct {
	RunID string
	Files []FileReport

	// FailedSources lists files that could not be fetched or whose
	// processing aborted; their committed chunks remain in the store.
	FailedSources []string
}

// Add folds a file report into the run.
func (r *RunReport) Add(fr FileReport) {
	r.Files = append(r.Files, fr)
}

// Totals sums all file reports.
func (r *RunReport) Totals() FileReport {
	var t FileReport
	for _, fr := range r.Files {
		t.RowsRead += fr.RowsRead
		t.Malformed += fr.Malformed
		t.Chunks += fr.Chunks
		t.DroppedNoRegion += fr.DroppedNoRegion
		t.DroppedNoIdentity += fr.DroppedNoIdentity
		t.Inserted += fr.Inserted
		t.Updated += fr.Updated
		t.Skipped += fr.Skipped
	}
	return t
}
