package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/afridata/afrisam/internal/record"
)

// Chunk is one fixed-size slice of an extract.
type Chunk struct {
	Rows      []record.Raw
	Malformed int
}

// ChunkReader streams an extract as chunks of raw rows, keyed by the
// header. The historical archives contain unescaped quotes and ragged
// rows, so parsing is deliberately lax: rows are zipped against the
// header up to the shorter length, and rows the parser cannot recover
// at all are counted and skipped rather than failing the file.
type ChunkReader struct {
	r      *csv.Reader
	header []string
	size   int
}

// NewChunkReader wraps a UTF-8 CSV stream. chunkSize is the maximum
// rows per chunk.
func NewChunkReader(r io.Reader, chunkSize int) (*ChunkReader, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	return &ChunkReader{r: cr, header: header, size: chunkSize}, nil
}

// Header returns the trimmed column names.
func (c *ChunkReader) Header() []string { return c.header }

// Next returns the next chunk, or io.EOF once the stream is exhausted.
func (c *ChunkReader) Next() (Chunk, error) {
	chunk := Chunk{Rows: make([]record.Raw, 0, c.size)}
	for len(chunk.Rows) < c.size {
		row, err := c.r.Read()
		if err == io.EOF {
			if len(chunk.Rows) == 0 && chunk.Malformed == 0 {
				return Chunk{}, io.EOF
			}
			return chunk, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			chunk.Malformed++
			continue
		}
		if err != nil {
			return Chunk{}, fmt.Errorf("read row: %w", err)
		}
		if raw := c.zip(row); raw != nil {
			chunk.Rows = append(chunk.Rows, raw)
		}
	}
	return chunk, nil
}

// zip pairs a row with the header up to the shorter length. Fully empty
// rows yield nil.
func (c *ChunkReader) zip(row []string) record.Raw {
	empty := true
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil
	}

	n := len(row)
	if len(c.header) < n {
		n = len(c.header)
	}
	raw := make(record.Raw, n)
	for i := 0; i < n; i++ {
		raw[c.header[i]] = row[i]
	}
	return raw
}
