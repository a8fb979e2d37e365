// Package ingest drives extract files through classification, identity
// resolution and date normalization into the record store, committing
// in fixed-size chunks so a crash mid-file loses at most one chunk of
// work and a rerun converges to the same store state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/afridata/afrisam/internal/checkpoint"
	"github.com/afridata/afrisam/internal/dates"
	"github.com/afridata/afrisam/internal/feed"
	"github.com/afridata/afrisam/internal/identity"
	"github.com/afridata/afrisam/internal/logging"
	"github.com/afridata/afrisam/internal/metrics"
	"github.com/afridata/afrisam/internal/record"
	"github.com/afridata/afrisam/internal/region"
	"github.com/afridata/afrisam/internal/store"
)

// Pipeline wires the feed, the transforms and the store together.
type Pipeline struct {
	store     store.RecordStore
	fetcher   *feed.Fetcher
	chunkSize int
	runID     string
	log       *slog.Logger
}

// New returns a pipeline with a fresh run ID.
func New(st store.RecordStore, fetcher *feed.Fetcher, chunkSize int) *Pipeline {
	runID := uuid.NewString()
	return &Pipeline{
		store:     st,
		fetcher:   fetcher,
		chunkSize: chunkSize,
		runID:     runID,
		log:       slog.With("component", "ingest", "run_id", runID),
	}
}

// RunID returns this pipeline's run identifier.
func (p *Pipeline) RunID() string { return p.runID }

// Update fetches the rolling current-year extract and ingests it.
func (p *Pipeline) Update(ctx context.Context) (RunReport, error) {
	report := RunReport{RunID: p.runID}

	path, err := p.fetcher.Fetch(ctx, feed.CurrentName, feed.CurrentURLs())
	if err != nil {
		report.FailedSources = append(report.FailedSources, feed.CurrentName)
		return report, fmt.Errorf("fetch current extract: %w", err)
	}

	fr, err := p.IngestFile(ctx, path)
	report.Add(fr)
	if err != nil {
		report.FailedSources = append(report.FailedSources, fr.Source)
		return report, err
	}
	return report, nil
}

// Backfill ingests archived fiscal years from start through end. Each
// year is fetched, ingested and checkpointed independently: a year
// whose archive is unpublished or whose processing fails is recorded
// and skipped, never aborting the rest of the run. Cancellation stops
// between years.
func (p *Pipeline) Backfill(ctx context.Context, start, end int, ckpt checkpoint.Manager) (RunReport, error) {
	report := RunReport{RunID: p.runID}

	cp, err := ckpt.Load(ctx)
	if err != nil && !errors.Is(err, checkpoint.ErrNoCheckpoint) {
		return report, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp != nil && cp.StartYear == start && cp.EndYear == end {
		resumed := cp.NextYear()
		if resumed > start {
			p.log.Info("resuming backfill", "year", resumed)
			start = resumed
		}
	} else {
		cp = &checkpoint.Checkpoint{RunID: p.runID, StartYear: start, EndYear: end}
	}

	for year := start; year <= end; year++ {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		fr, err := p.ingestYear(ctx, year)
		report.Add(fr)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			p.log.Error("year failed", "year", year, "error", err)
			report.FailedSources = append(report.FailedSources, fr.Source)
			cp.FailedYears = append(cp.FailedYears, year)
		}

		cp.CompletedYear = year
		if err := ckpt.Save(ctx, cp); err != nil {
			return report, fmt.Errorf("save checkpoint: %w", err)
		}
		if m := metrics.Get(); m != nil {
			m.SetLastBackfillYear(year)
		}
	}

	if err := ckpt.Clear(ctx); err != nil {
		p.log.Warn("clear checkpoint", "error", err)
	}
	return report, nil
}

func (p *Pipeline) ingestYear(ctx context.Context, year int) (FileReport, error) {
	name := feed.ArchiveName(year)
	path, err := p.fetcher.Fetch(ctx, name, feed.ArchiveURLs(year))
	if err != nil {
		return FileReport{Source: name}, err
	}
	return p.IngestFile(ctx, path)
}

// IngestRefs resolves and ingests arbitrary source references (local
// paths, http(s), s3://, gs://, file://), isolating failures per file.
func (p *Pipeline) IngestRefs(ctx context.Context, refs []string) (RunReport, error) {
	report := RunReport{RunID: p.runID}
	for _, ref := range refs {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		path, err := p.fetcher.Resolve(ctx, ref)
		if err != nil {
			p.log.Error("resolve source failed", "ref", ref, "error", err)
			report.FailedSources = append(report.FailedSources, ref)
			continue
		}

		fr, err := p.IngestFile(ctx, path)
		report.Add(fr)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			p.log.Error("source failed", "ref", ref, "error", err)
			report.FailedSources = append(report.FailedSources, fr.Source)
		}
	}
	return report, nil
}

// IngestFile streams one spooled extract into the store. Chunks commit
// as they complete; an error mid-file keeps everything committed so
// far.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (FileReport, error) {
	source := filepath.Base(path)
	report := FileReport{Source: source}
	log := logging.FileLogger(p.runID, source)

	stream, encoding, err := feed.DecodeFile(path)
	if err != nil {
		if m := metrics.Get(); m != nil {
			m.IncFilesFailed(source)
		}
		return report, err
	}
	defer stream.Close()
	log.Info("opened extract", "encoding", encoding)

	reader, err := feed.NewChunkReader(stream, p.chunkSize)
	if err != nil {
		if m := metrics.Get(); m != nil {
			m.IncFilesFailed(source)
		}
		return report, fmt.Errorf("open %s: %w", source, err)
	}

	for {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		chunk, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if m := metrics.Get(); m != nil {
				m.IncFilesFailed(source)
			}
			return report, fmt.Errorf("read %s: %w", source, err)
		}

		if err := p.commitChunk(ctx, source, chunk, &report); err != nil {
			if m := metrics.Get(); m != nil {
				m.IncFilesFailed(source)
			}
			return report, fmt.Errorf("commit chunk %d of %s: %w", report.Chunks+1, source, err)
		}
		report.Chunks++
	}

	if m := metrics.Get(); m != nil {
		m.IncFilesProcessed(source)
	}
	log.Info("extract complete",
		"rows", report.RowsRead,
		"kept", report.Kept(),
		"inserted", report.Inserted,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"dropped_no_region", report.DroppedNoRegion,
		"dropped_no_identity", report.DroppedNoIdentity,
		"malformed", report.Malformed,
		"chunks", report.Chunks,
	)
	return report, nil
}

func (p *Pipeline) commitChunk(ctx context.Context, source string, chunk feed.Chunk, report *FileReport) error {
	report.RowsRead += len(chunk.Rows) + chunk.Malformed
	report.Malformed += chunk.Malformed

	m := metrics.Get()
	if m != nil {
		m.AddRowsRead(source, float64(len(chunk.Rows)+chunk.Malformed))
		for i := 0; i < chunk.Malformed; i++ {
			m.IncRowsDropped(source, metrics.DropMalformed)
		}
	}

	recs := make([]record.Canonical, 0, len(chunk.Rows))
	for _, raw := range chunk.Rows {
		rec, drop := Transform(raw)
		if drop != "" {
			switch drop {
			case metrics.DropNoRegion:
				report.DroppedNoRegion++
			case metrics.DropNoIdentity:
				report.DroppedNoIdentity++
			}
			if m != nil {
				m.IncRowsDropped(source, drop)
			}
			continue
		}
		recs = append(recs, rec)
	}

	start := time.Now()
	result, err := p.store.UpsertBatch(ctx, recs)
	if err != nil {
		return err
	}
	report.Inserted += result.Inserted
	report.Updated += result.Updated
	report.Skipped += result.Skipped

	if m != nil {
		m.ObserveChunkCommit(source, time.Since(start).Seconds(), len(recs))
		m.AddOutcomes(source, result.Inserted, result.Updated, result.Skipped)
	}
	return nil
}

// Transform turns one raw row into a canonical record, or reports the
// drop reason. A row is kept only when it classifies into the target
// region and resolves a usable identity; an unparseable posted date
// does not drop the row, it just leaves the record undated.
func Transform(raw record.Raw) (record.Canonical, string) {
	code, ok := region.Classify(regionCandidates(raw)...)
	if !ok {
		return record.Canonical{}, metrics.DropNoRegion
	}

	id, ok := identity.Resolve(raw)
	if !ok {
		return record.Canonical{}, metrics.DropNoIdentity
	}

	posted := dates.Normalize(raw.Get("PostedDate"))
	return record.NewCanonical(id, code, region.Standardize(code), posted, raw), ""
}

// regionCandidates collects the country-bearing values of a row. The
// current extract names them PopCountry and CountryCode; historical
// schemas vary the casing and punctuation, so columns are matched on a
// normalized name.
func regionCandidates(raw record.Raw) []string {
	var candidates []string
	if v := raw.Get("PopCountry"); v != "" {
		candidates = append(candidates, v)
	}
	if v := raw.Get("CountryCode"); v != "" {
		candidates = append(candidates, v)
	}
	if len(candidates) > 0 {
		return candidates
	}

	// Sorted keys keep candidate order stable across runs.
	cols := make([]string, 0, len(raw))
	for col := range raw {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		switch normalizeColumn(col) {
		case "popcountry", "countrycode", "country", "placeofperformancecountry":
			if v := strings.TrimSpace(raw[col]); v != "" {
				candidates = append(candidates, v)
			}
		}
	}
	return candidates
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
