// Package ingestion reads extracted Wikipedia articles and prepares their text
// for segmentation: record decoding, character normalization, line filtering
// and sentence splitting.
package ingestion

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxRecordSize bounds a single JSON line. Some list articles are several
// megabytes long.
const maxRecordSize = 16 * 1024 * 1024

// Record is one article as emitted by wikiextractor with --json.
type Record struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ReadStats counts what happened while decoding a record stream.
type ReadStats struct {
	Lines     int
	Records   int
	Malformed int
}

// ReadError reports a failure of the underlying reader. Malformed records are
// not errors; they are counted and skipped.
type ReadError struct {
	Message string
	Cause   error
}

func (e *ReadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("read error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("read error: %s", e.Message)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}

// ReadRecords decodes one JSON object per line from r and calls fn for each.
// Blank lines, lines that are not valid JSON objects and lines longer than
// maxRecordSize are skipped. An error returned by fn stops the scan and is
// returned unchanged.
func ReadRecords(r io.Reader, fn func(Record) error) (ReadStats, error) {
	return readRecords(r, maxRecordSize, fn)
}

func readRecords(r io.Reader, limit int, fn func(Record) error) (ReadStats, error) {
	var (
		stats    ReadStats
		line     []byte
		oversize bool
	)
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversize {
			if len(line)+len(chunk) > limit {
				// Drop what was buffered and ignore the rest of the line.
				oversize = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return stats, &ReadError{Message: fmt.Sprintf("after %d lines", stats.Lines), Cause: err}
		}

		if len(line) > 0 || oversize {
			stats.Lines++
			if oversize {
				stats.Malformed++
			} else if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				var rec Record
				if jsonErr := json.Unmarshal(trimmed, &rec); jsonErr != nil {
					stats.Malformed++
				} else {
					stats.Records++
					if err := fn(rec); err != nil {
						return stats, err
					}
				}
			}
			line, oversize = line[:0], false
		}
		if err != nil {
			return stats, nil
		}
	}
}
