package store

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/afridata/afrisam/internal/logging"
	"github.com/afridata/afrisam/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Postgres implements RecordStore on PostgreSQL via pgx.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger

	insertSQL string
	updateSQL string
	selectSQL string
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so the same upsert
// path runs inside and outside an explicit transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgres connects, initializes the schema, and returns a ready
// store.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Postgres{
		pool: pool,
		log:  logging.Component("store"),
	}
	s.buildStatements()

	if _, err := pool.Exec(connectCtx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s.log.Info("connected to postgres store")
	return s, nil
}

// buildStatements prepares the column-ordered SQL once. Retained source
// columns keep their extract names and are always quoted since several
// carry slashes, dashes or dollar signs.
func (s *Postgres) buildStatements() {
	quoted := make([]string, len(record.KeepColumns))
	for i, col := range record.KeepColumns {
		quoted[i] = `"` + col + `"`
	}

	allCols := append([]string{"identity", "region_code", "region_display", "posted_at"}, quoted...)
	placeholders := make([]string, len(allCols))
	for i := range allCols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	s.insertSQL = fmt.Sprintf(
		"INSERT INTO opportunities (%s) VALUES (%s)",
		strings.Join(allCols, ", "), strings.Join(placeholders, ", "),
	)

	// identity stays $1; everything else is overwritten on update.
	sets := make([]string, 0, len(allCols))
	for i, col := range allCols[1:] {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+2))
	}
	sets = append(sets, "updated_at = NOW()")
	s.updateSQL = fmt.Sprintf(
		"UPDATE opportunities SET %s WHERE identity = $1",
		strings.Join(sets, ", "),
	)

	s.selectSQL = "SELECT posted_at FROM opportunities WHERE identity = $1"
}

func (s *Postgres) args(rec record.Canonical) []any {
	args := make([]any, 0, 4+len(record.KeepColumns))
	args = append(args, rec.Identity, rec.RegionCode, rec.RegionDisplay, rec.PostedAt)
	for _, col := range record.KeepColumns {
		args = append(args, rec.Fields[col])
	}
	return args
}

// Upsert applies one record under the merge policy.
func (s *Postgres) Upsert(ctx context.Context, rec record.Canonical) (Outcome, error) {
	return s.upsert(ctx, s.pool, rec)
}

func (s *Postgres) upsert(ctx context.Context, db dbtx, rec record.Canonical) (Outcome, error) {
	var stored *time.Time
	exists := true
	err := db.QueryRow(ctx, s.selectSQL, rec.Identity).Scan(&stored)
	if err == pgx.ErrNoRows {
		exists = false
	} else if err != nil {
		return Skipped, fmt.Errorf("lookup %s: %w", rec.Identity, err)
	}

	switch Decide(exists, stored, rec.PostedAt) {
	case Inserted:
		if _, err := db.Exec(ctx, s.insertSQL, s.args(rec)...); err != nil {
			return Skipped, fmt.Errorf("insert %s: %w", rec.Identity, err)
		}
		return Inserted, nil
	case Updated:
		if _, err := db.Exec(ctx, s.updateSQL, s.args(rec)...); err != nil {
			return Skipped, fmt.Errorf("update %s: %w", rec.Identity, err)
		}
		return Updated, nil
	default:
		return Skipped, nil
	}
}

// UpsertBatch applies a chunk of records in one transaction. On error
// the whole chunk rolls back; previously committed chunks are untouched.
func (s *Postgres) UpsertBatch(ctx context.Context, recs []record.Canonical) (BatchResult, error) {
	var result BatchResult
	if len(recs) == 0 {
		return result, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin chunk: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range recs {
		outcome, err := s.upsert(ctx, tx, rec)
		if err != nil {
			return BatchResult{}, err
		}
		result.Add(outcome)
	}

	if err := tx.Commit(ctx); err != nil {
		return BatchResult{}, fmt.Errorf("commit chunk: %w", err)
	}
	return result, nil
}

// Count returns the total number of stored records.
func (s *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// CountByRegion returns record counts grouped by region code.
func (s *Postgres) CountByRegion(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT region_code, COUNT(*) FROM opportunities GROUP BY region_code")
	if err != nil {
		return nil, fmt.Errorf("count by region: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var code string
		var n int64
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan region count: %w", err)
		}
		out[code] = n
	}
	return out, rows.Err()
}

// CountByYear returns record counts grouped by posted year; undated
// records are grouped under 0.
func (s *Postgres) CountByYear(ctx context.Context) (map[int]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(EXTRACT(YEAR FROM posted_at)::int, 0), COUNT(*)
		FROM opportunities GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("count by year: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int64)
	for rows.Next() {
		var year int
		var n int64
		if err := rows.Scan(&year, &n); err != nil {
			return nil, fmt.Errorf("scan year count: %w", err)
		}
		out[year] = n
	}
	return out, rows.Err()
}

// Each streams every stored record in identity order.
func (s *Postgres) Each(ctx context.Context, fn func(record.Canonical) error) error {
	quoted := make([]string, len(record.KeepColumns))
	for i, col := range record.KeepColumns {
		quoted[i] = `"` + col + `"`
	}
	query := fmt.Sprintf(
		"SELECT identity, region_code, region_display, posted_at, %s FROM opportunities ORDER BY identity",
		strings.Join(quoted, ", "),
	)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("scan store: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec := record.Canonical{Fields: make(map[string]string, len(record.KeepColumns))}
		dest := make([]any, 0, 4+len(record.KeepColumns))
		dest = append(dest, &rec.Identity, &rec.RegionCode, &rec.RegionDisplay, &rec.PostedAt)
		values := make([]string, len(record.KeepColumns))
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		for i, col := range record.KeepColumns {
			rec.Fields[col] = values[i]
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
