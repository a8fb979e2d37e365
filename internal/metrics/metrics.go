// Package metrics provides Prometheus metrics for the ingestion
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Row metrics
	RowsRead    *prometheus.CounterVec
	RowsDropped *prometheus.CounterVec

	// Store outcome metrics
	RecordsInserted *prometheus.CounterVec
	RecordsUpdated  *prometheus.CounterVec
	RecordsSkipped  *prometheus.CounterVec

	// File metrics
	FilesProcessed *prometheus.CounterVec
	FilesFailed    *prometheus.CounterVec

	// Fetch metrics
	FetchRetries  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Timing metrics
	ChunkCommitDuration *prometheus.HistogramVec
	ChunkRows           prometheus.Histogram

	// Progress
	LastBackfillYear prometheus.Gauge
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for metrics HTTP server (e.g., ":9090")
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "afrisam"
	}

	m := &Metrics{
		RowsRead: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_read_total",
				Help:      "Total number of CSV rows read",
			},
			[]string{"source"},
		),
		RowsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_dropped_total",
				Help:      "Total number of rows dropped before storage",
			},
			[]string{"source", "reason"},
		),
		RecordsInserted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_inserted_total",
				Help:      "Total number of new identities inserted",
			},
			[]string{"source"},
		),
		RecordsUpdated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_updated_total",
				Help:      "Total number of identities overwritten by newer records",
			},
			[]string{"source"},
		),
		RecordsSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_skipped_total",
				Help:      "Total number of records skipped by the merge policy",
			},
			[]string{"source"},
		),
		FilesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_processed_total",
				Help:      "Total number of source files fully processed",
			},
			[]string{"source"},
		),
		FilesFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_failed_total",
				Help:      "Total number of source files that failed processing",
			},
			[]string{"source"},
		),
		FetchRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_retries_total",
				Help:      "Total number of download retry attempts",
			},
			[]string{"operation"},
		),
		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time to download one source file",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~30m
			},
			[]string{"operation"},
		),
		ChunkCommitDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chunk_commit_duration_seconds",
				Help:      "Time to commit one chunk transaction",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"source"},
		),
		ChunkRows: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chunk_rows",
				Help:      "Number of rows per committed chunk",
				Buckets:   prometheus.ExponentialBuckets(100, 2, 10), // 100 to ~100k
			},
		),
		LastBackfillYear: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_backfill_year",
				Help:      "Most recently completed backfill fiscal year",
			},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// Drop reasons for the rows_dropped_total counter.
const (
	DropNoRegion   = "no_region"
	DropNoIdentity = "no_identity"
	DropMalformed  = "malformed"
)

// AddRowsRead adds to the rows read counter.
func (m *Metrics) AddRowsRead(source string, n float64) {
	m.RowsRead.WithLabelValues(source).Add(n)
}

// IncRowsDropped increments the dropped rows counter for one reason.
func (m *Metrics) IncRowsDropped(source, reason string) {
	m.RowsDropped.WithLabelValues(source, reason).Inc()
}

// AddOutcomes folds one committed chunk's outcome counts in.
func (m *Metrics) AddOutcomes(source string, inserted, updated, skipped int) {
	m.RecordsInserted.WithLabelValues(source).Add(float64(inserted))
	m.RecordsUpdated.WithLabelValues(source).Add(float64(updated))
	m.RecordsSkipped.WithLabelValues(source).Add(float64(skipped))
}

// IncFilesProcessed increments the processed files counter.
func (m *Metrics) IncFilesProcessed(source string) {
	m.FilesProcessed.WithLabelValues(source).Inc()
}

// IncFilesFailed increments the failed files counter.
func (m *Metrics) IncFilesFailed(source string) {
	m.FilesFailed.WithLabelValues(source).Inc()
}

// IncFetchRetries increments the download retry counter.
func (m *Metrics) IncFetchRetries(operation string) {
	m.FetchRetries.WithLabelValues(operation).Inc()
}

// ObserveFetchDuration records one download's duration.
func (m *Metrics) ObserveFetchDuration(operation string, seconds float64) {
	m.FetchDuration.WithLabelValues(operation).Observe(seconds)
}

// ObserveChunkCommit records one chunk commit's duration and size.
func (m *Metrics) ObserveChunkCommit(source string, seconds float64, rows int) {
	m.ChunkCommitDuration.WithLabelValues(source).Observe(seconds)
	m.ChunkRows.Observe(float64(rows))
}

// SetLastBackfillYear records backfill progress.
func (m *Metrics) SetLastBackfillYear(year int) {
	m.LastBackfillYear.Set(float64(year))
}
