package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/afridata/afrisam/internal/metrics"
	"github.com/afridata/afrisam/internal/record"
	"github.com/afridata/afrisam/internal/store"
)

// memStore implements store.RecordStore in memory for pipeline tests,
// applying the same merge policy as the real store.
type memStore struct {
	records map[string]record.Canonical
	batches int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]record.Canonical)}
}

func (m *memStore) Upsert(ctx context.Context, rec record.Canonical) (store.Outcome, error) {
	stored, exists := m.records[rec.Identity]
	var storedAt *time.Time
	if exists {
		storedAt = stored.PostedAt
	}
	outcome := store.Decide(exists, storedAt, rec.PostedAt)
	if outcome != store.Skipped {
		m.records[rec.Identity] = rec
	}
	return outcome, nil
}

func (m *memStore) UpsertBatch(ctx context.Context, recs []record.Canonical) (store.BatchResult, error) {
	m.batches++
	var result store.BatchResult
	for _, rec := range recs {
		outcome, err := m.Upsert(ctx, rec)
		if err != nil {
			return store.BatchResult{}, err
		}
		result.Add(outcome)
	}
	return result, nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.records)), nil
}

func (m *memStore) CountByRegion(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, rec := range m.records {
		out[rec.RegionCode]++
	}
	return out, nil
}

func (m *memStore) CountByYear(ctx context.Context) (map[int]int64, error) {
	out := make(map[int]int64)
	for _, rec := range m.records {
		if rec.PostedAt == nil {
			out[0]++
		} else {
			out[rec.PostedAt.Year()]++
		}
	}
	return out, nil
}

func (m *memStore) Each(ctx context.Context, fn func(record.Canonical) error) error {
	for _, rec := range m.records {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extract.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const header = "NoticeId,Title,PostedDate,Type,PopCountry,CountryCode\n"

func TestIngestFileKeepsAfricanRows(t *testing.T) {
	csv := header +
		"n1,Road works,2024-03-04,Solicitation,KENYA,KEN\n" +
		"n2,Office lease,2024-03-05,Solicitation,UNITED STATES,USA\n" +
		"n3,Water supply,2024-03-06,Solicitation,GHANA,GHA\n"
	st := newMemStore()
	p := New(st, nil, 100)

	report, err := p.IngestFile(context.Background(), writeCSV(t, csv))
	if err != nil {
		t.Fatal(err)
	}

	if report.RowsRead != 3 {
		t.Errorf("rows read = %d, want 3", report.RowsRead)
	}
	if report.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", report.Inserted)
	}
	if report.DroppedNoRegion != 1 {
		t.Errorf("dropped no region = %d, want 1", report.DroppedNoRegion)
	}

	rec, ok := st.records["n1"]
	if !ok {
		t.Fatal("n1 not stored")
	}
	if rec.RegionCode != "KEN" {
		t.Errorf("region = %s, want KEN", rec.RegionCode)
	}
	if rec.RegionDisplay != "KENYA (KEN)" {
		t.Errorf("display = %s", rec.RegionDisplay)
	}
	if rec.PostedAt == nil || rec.PostedAt.Format("2006-01-02") != "2024-03-04" {
		t.Errorf("posted at = %v", rec.PostedAt)
	}
	if rec.Fields["Title"] != "Road works" {
		t.Errorf("title = %q", rec.Fields["Title"])
	}
	// Retained columns absent from this schema default to empty.
	if v, ok := rec.Fields["Awardee"]; !ok || v != "" {
		t.Errorf("Awardee = %q, %v", v, ok)
	}
}

func TestIngestFileIdempotent(t *testing.T) {
	csv := header +
		"n1,Road works,2024-03-04,Solicitation,KENYA,KEN\n" +
		"n2,Water supply,2024-03-06,Solicitation,GHANA,GHA\n"
	path := writeCSV(t, csv)
	st := newMemStore()
	p := New(st, nil, 100)
	ctx := context.Background()

	first, err := p.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Inserted != 2 {
		t.Fatalf("first run inserted = %d, want 2", first.Inserted)
	}

	second, err := p.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if second.Inserted != 0 || second.Updated != 0 {
		t.Fatalf("second run changed the store: %+v", second)
	}
	if second.Skipped != 2 {
		t.Fatalf("second run skipped = %d, want 2", second.Skipped)
	}
	if n, _ := st.Count(ctx); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func TestIngestFileNewerDateOverwrites(t *testing.T) {
	st := newMemStore()
	p := New(st, nil, 100)
	ctx := context.Background()

	old := header + "n1,Road works,2024-03-04,Solicitation,KENYA,KEN\n"
	if _, err := p.IngestFile(ctx, writeCSV(t, old)); err != nil {
		t.Fatal(err)
	}

	newer := header + "n1,Road works amended,2024-03-10,Solicitation,KENYA,KEN\n"
	report, err := p.IngestFile(ctx, writeCSV(t, newer))
	if err != nil {
		t.Fatal(err)
	}
	if report.Updated != 1 {
		t.Fatalf("updated = %d, want 1", report.Updated)
	}
	if got := st.records["n1"].Fields["Title"]; got != "Road works amended" {
		t.Fatalf("title = %q", got)
	}

	// Replaying the older version must not regress the record.
	report, err = p.IngestFile(ctx, writeCSV(t, old))
	if err != nil {
		t.Fatal(err)
	}
	if report.Skipped != 1 || report.Updated != 0 {
		t.Fatalf("replay report = %+v", report)
	}
	if got := st.records["n1"].Fields["Title"]; got != "Road works amended" {
		t.Fatalf("older replay overwrote title: %q", got)
	}
}

func TestIngestFileChunking(t *testing.T) {
	csv := header
	for i := 0; i < 5; i++ {
		csv += "id" + string(rune('a'+i)) + ",T,2024-03-04,Solicitation,KENYA,KEN\n"
	}
	st := newMemStore()
	p := New(st, nil, 2)

	report, err := p.IngestFile(context.Background(), writeCSV(t, csv))
	if err != nil {
		t.Fatal(err)
	}
	if report.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", report.Chunks)
	}
	if st.batches != 3 {
		t.Errorf("batches = %d, want 3", st.batches)
	}
	if report.Inserted != 5 {
		t.Errorf("inserted = %d, want 5", report.Inserted)
	}
}

func TestTransform(t *testing.T) {
	rec, drop := Transform(record.Raw{
		"NoticeId":   "n1",
		"Title":      "Road works",
		"PostedDate": "03/04/2024",
		"PopCountry": "IVORY COAST",
	})
	if drop != "" {
		t.Fatalf("dropped: %s", drop)
	}
	if rec.RegionCode != "CIV" {
		t.Errorf("region = %s, want CIV", rec.RegionCode)
	}
	if rec.PostedAt == nil || rec.PostedAt.Format("2006-01-02") != "2024-03-04" {
		t.Errorf("posted at = %v", rec.PostedAt)
	}

	// Unparseable date keeps the row, undated.
	rec, drop = Transform(record.Raw{
		"NoticeId":   "n2",
		"PostedDate": "TBD",
		"PopCountry": "KENYA",
	})
	if drop != "" {
		t.Fatalf("dropped: %s", drop)
	}
	if rec.PostedAt != nil {
		t.Errorf("posted at = %v, want nil", rec.PostedAt)
	}

	// African row with a missing identifier value is dropped.
	_, drop = Transform(record.Raw{
		"NoticeId":   "nan",
		"PopCountry": "KENYA",
	})
	if drop != metrics.DropNoIdentity {
		t.Fatalf("drop = %q, want %q", drop, metrics.DropNoIdentity)
	}

	// Non-African row is dropped before identity resolution.
	_, drop = Transform(record.Raw{
		"NoticeId":   "n3",
		"PopCountry": "CANADA",
	})
	if drop != metrics.DropNoRegion {
		t.Fatalf("drop = %q, want %q", drop, metrics.DropNoRegion)
	}
}

func TestTransformHistoricalSchema(t *testing.T) {
	// Old archive schema: different ID column, slash dates, country only
	// in a loosely named column.
	rec, drop := Transform(record.Raw{
		"Solicitation Number": "W912-99-R-0001",
		"PostedDate":          "7/15/1999",
		"Country":             "NIGERIA",
	})
	if drop != "" {
		t.Fatalf("dropped: %s", drop)
	}
	if rec.Identity != "W912-99-R-0001" {
		t.Errorf("identity = %q", rec.Identity)
	}
	if rec.RegionCode != "NGA" {
		t.Errorf("region = %s, want NGA", rec.RegionCode)
	}
	if rec.PostedAt == nil || rec.PostedAt.Format("2006-01-02") != "1999-07-15" {
		t.Errorf("posted at = %v", rec.PostedAt)
	}
}
