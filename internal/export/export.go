// Package export snapshots the record store as a parquet file with a
// checksum sidecar, written to a local directory or a blob bucket.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver

	"github.com/afridata/afrisam/internal/logging"
	"github.com/afridata/afrisam/internal/record"
	"github.com/afridata/afrisam/internal/store"
)

// OpportunityRow is the parquet schema for one stored record.
type OpportunityRow struct {
	Identity      string     `parquet:"identity"`
	RegionCode    string     `parquet:"region_code"`
	RegionDisplay string     `parquet:"region_display"`
	PostedAt      *time.Time `parquet:"posted_at,optional,timestamp(millisecond)"`

	Title                  string `parquet:"title"`
	Department             string `parquet:"department"`
	SubTier                string `parquet:"sub_tier"`
	Office                 string `parquet:"office"`
	PostedDate             string `parquet:"posted_date"`
	Type                   string `parquet:"type"`
	PopCountry             string `parquet:"pop_country"`
	AwardNumber            string `parquet:"award_number"`
	AwardDate              string `parquet:"award_date"`
	AwardAmount            string `parquet:"award_amount"`
	Awardee                string `parquet:"awardee"`
	PrimaryContactTitle    string `parquet:"primary_contact_title"`
	PrimaryContactFullName string `parquet:"primary_contact_full_name"`
	PrimaryContactEmail    string `parquet:"primary_contact_email"`
	PrimaryContactPhone    string `parquet:"primary_contact_phone"`
	OrganizationType       string `parquet:"organization_type"`
	CountryCode            string `parquet:"country_code"`
	Link                   string `parquet:"link"`
	Description            string `parquet:"description"`

	ExportedAt time.Time `parquet:"exported_at,timestamp(millisecond)"`
}

func rowFromRecord(rec record.Canonical, exportedAt time.Time) OpportunityRow {
	f := rec.Fields
	return OpportunityRow{
		Identity:      rec.Identity,
		RegionCode:    rec.RegionCode,
		RegionDisplay: rec.RegionDisplay,
		PostedAt:      rec.PostedAt,

		Title:                  f["Title"],
		Department:             f["Department/Ind.Agency"],
		SubTier:                f["Sub-Tier"],
		Office:                 f["Office"],
		PostedDate:             f["PostedDate"],
		Type:                   f["Type"],
		PopCountry:             f["PopCountry"],
		AwardNumber:            f["AwardNumber"],
		AwardDate:              f["AwardDate"],
		AwardAmount:            f["Award$"],
		Awardee:                f["Awardee"],
		PrimaryContactTitle:    f["PrimaryContactTitle"],
		PrimaryContactFullName: f["PrimaryContactFullName"],
		PrimaryContactEmail:    f["PrimaryContactEmail"],
		PrimaryContactPhone:    f["PrimaryContactPhone"],
		OrganizationType:       f["OrganizationType"],
		CountryCode:            f["CountryCode"],
		Link:                   f["Link"],
		Description:            f["Description"],

		ExportedAt: exportedAt,
	}
}

// Exporter writes store snapshots.
type Exporter struct {
	store store.RecordStore
	dest  string
	log   *slog.Logger
}

// New returns an exporter targeting dest, which may be a local
// directory or an s3://, gs:// or file:// URL.
func New(st store.RecordStore, dest string) *Exporter {
	return &Exporter{
		store: st,
		dest:  dest,
		log:   logging.Component("export"),
	}
}

// Export scans the whole store into one parquet file plus a .sha256
// sidecar and returns the snapshot name. Records stream in identity
// order so identical store states yield identical files.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	exportedAt := time.Now().UTC()
	name := fmt.Sprintf("opportunities_%s.parquet", exportedAt.Format("20060102T150405Z"))

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[OpportunityRow](&buf, parquet.Compression(&parquet.Snappy))

	var rows int64
	err := e.store.Each(ctx, func(rec record.Canonical) error {
		if _, err := w.Write([]OpportunityRow{rowFromRecord(rec, exportedAt)}); err != nil {
			return fmt.Errorf("write row %s: %w", rec.Identity, err)
		}
		rows++
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan store: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize parquet: %w", err)
	}

	data := buf.Bytes()
	checksum := Checksum(data)

	if err := e.write(ctx, name, data, checksum); err != nil {
		return "", err
	}

	e.log.Info("snapshot written",
		"name", name, "rows", rows, "bytes", len(data), "checksum", checksum)
	return name, nil
}

func (e *Exporter) write(ctx context.Context, name string, data []byte, checksum string) error {
	if hasBlobScheme(e.dest) {
		return e.writeBlob(ctx, name, data, checksum)
	}
	return e.writeLocal(name, data, checksum)
}

func hasBlobScheme(dest string) bool {
	return strings.HasPrefix(dest, "s3://") ||
		strings.HasPrefix(dest, "gs://") ||
		strings.HasPrefix(dest, "file://")
}

func (e *Exporter) writeBlob(ctx context.Context, name string, data []byte, checksum string) error {
	u, err := url.Parse(e.dest)
	if err != nil {
		return fmt.Errorf("parse export destination %s: %w", e.dest, err)
	}
	prefix := strings.TrimPrefix(u.Path, "/")

	bucketURL := u.Scheme + "://" + u.Host
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	defer bucket.Close()

	key := path.Join(prefix, name)
	if err := bucket.WriteAll(ctx, key, data, nil); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := bucket.WriteAll(ctx, key+".sha256", []byte(checksum+"\n"), nil); err != nil {
		return fmt.Errorf("upload checksum %s: %w", key, err)
	}
	return nil
}

func (e *Exporter) writeLocal(name string, data []byte, checksum string) error {
	if err := os.MkdirAll(e.dest, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	dest := filepath.Join(e.dest, name)

	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize snapshot: %w", err)
	}
	if err := os.WriteFile(dest+".sha256", []byte(checksum+"\n"), 0o644); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return nil
}
