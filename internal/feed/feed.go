// Package feed acquires SAM.gov contract-opportunity CSV extracts and
// streams them as chunks of raw rows. It handles the download (with
// mirror fallback and retries), the mixed character encodings of the
// historical archives, optional gzip or zstd compression, and the
// structurally loose CSV the extracts actually contain.
package feed

import "errors"

var (
	// ErrUnavailable means no candidate URL served the file; a 404 from
	// every host most often means the fiscal year was never published.
	ErrUnavailable = errors.New("source file unavailable")

	// ErrEncoding means no decoder in the cascade produced a clean
	// decode of the file.
	ErrEncoding = errors.New("undecodable character encoding")

	// ErrNoHeader means the CSV had no header row.
	ErrNoHeader = errors.New("missing CSV header")
)
