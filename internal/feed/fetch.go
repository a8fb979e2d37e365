package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/afridata/afrisam/internal/logging"
	"github.com/afridata/afrisam/internal/metrics"
)

// Fetcher downloads extract files into a local spool directory.
type Fetcher struct {
	client   *http.Client
	spoolDir string
	retries  int
	backoff  time.Duration
	log      *slog.Logger
}

// NewFetcher returns a fetcher spooling into spoolDir. retries bounds
// the attempts per URL; backoff is the base delay, doubled per attempt.
func NewFetcher(spoolDir string, timeout time.Duration, retries int, backoff time.Duration) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		spoolDir: spoolDir,
		retries:  retries,
		backoff:  backoff,
		log:      logging.Component("fetch"),
	}
}

// Fetch downloads the first candidate URL that serves the file and
// returns the spooled path. Candidates are tried in order; a 404 moves
// straight to the next candidate, transient failures are retried with
// increasing backoff. The spool write is atomic (temp file + rename) so
// a killed download never leaves a truncated file behind.
func (f *Fetcher) Fetch(ctx context.Context, name string, urls []string) (string, error) {
	if err := os.MkdirAll(f.spoolDir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}
	dest := filepath.Join(f.spoolDir, name)

	start := time.Now()
	var lastErr error
	for _, url := range urls {
		err := f.fetchOne(ctx, url, dest)
		if err == nil {
			if m := metrics.Get(); m != nil {
				m.ObserveFetchDuration(name, time.Since(start).Seconds())
			}
			return dest, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		f.log.Warn("candidate failed, trying next", "url", url, "error", err)
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return "", fmt.Errorf("fetch %s: %w", name, lastErr)
}

func (f *Fetcher) fetchOne(ctx context.Context, url, dest string) error {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			if m := metrics.Get(); m != nil {
				m.IncFetchRetries(filepath.Base(dest))
			}
			delay := f.backoff * (1 << (attempt - 1))
			f.log.Info("retrying download", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := f.download(ctx, url, dest)
		if err == nil {
			return nil
		}
		// Not-found is definitive for this URL; retrying cannot help.
		if err == ErrUnavailable {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("exhausted %d attempts: %w", f.retries+1, lastErr)
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.spoolDir, filepath.Base(dest)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write spool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close spool file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("finalize spool file: %w", err)
	}

	f.log.Info("downloaded", "url", url, "bytes", n, "path", dest)
	return nil
}
