package titles

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// FileError reports a dictionary file that could not be read or written.
type FileError struct {
	Path    string
	Message string
	Cause   error
}

func (e *FileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("title dictionary %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("title dictionary %s: %s", e.Path, e.Message)
}

func (e *FileError) Unwrap() error {
	return e.Cause
}

// Read parses "raw,normalized" rows. Rows with a different field count or an
// empty column are ignored; the first occurrence of a raw title wins.
func Read(r io.Reader) (Dictionary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	dict := Dictionary{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return dict, nil
		}
		if err != nil {
			return nil, err
		}
		if len(row) != 2 {
			continue
		}
		dict.Add(Entry{Raw: row[0], Normalized: row[1]})
	}
}

// Write emits the dictionary sorted by raw title.
func Write(w io.Writer, dict Dictionary) error {
	raws := make([]string, 0, len(dict))
	for raw := range dict {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	cw := csv.NewWriter(w)
	for _, raw := range raws {
		if err := cw.Write([]string{raw, dict[raw]}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Load reads a dictionary file.
func Load(path string) (Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Message: "failed to open", Cause: err}
	}
	defer f.Close()

	dict, err := Read(f)
	if err != nil {
		return nil, &FileError{Path: path, Message: "failed to parse", Cause: err}
	}
	return dict, nil
}

// Save writes dict to path atomically through a temporary file in the same
// directory.
func Save(path string, dict Dictionary) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FileError{Path: path, Message: "failed to create directory", Cause: err}
	}
	tmp, err := os.CreateTemp(dir, ".titles-*.csv")
	if err != nil {
		return &FileError{Path: path, Message: "failed to create temp file", Cause: err}
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, dict); err != nil {
		tmp.Close()
		return &FileError{Path: path, Message: "failed to write", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &FileError{Path: path, Message: "failed to close", Cause: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &FileError{Path: path, Message: "failed to rename", Cause: err}
	}
	return nil
}
