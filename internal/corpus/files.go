package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonathan/jawiki-corpus/internal/ingestion"
)

// BuildError reports a resource failure that stops the build.
type BuildError struct {
	Message string
	Cause   error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corpus build error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("corpus build error: %s", e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// InputFiles lists the extracted files under dir (wikiextractor writes
// <dir>/AA/wiki_00 and so on) in lexical order. Hidden files are ignored.
func InputFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &BuildError{Message: fmt.Sprintf("failed to list %s", dir), Cause: err}
	}
	sort.Strings(files)
	return files, nil
}

// ProcessFile converts every article of the JSON Lines file in and writes the
// resulting sentences to out.
func ProcessFile(ctx context.Context, proc *Processor, in, out string) (Stats, error) {
	st := Stats{Files: 1}

	rf, err := os.Open(in)
	if err != nil {
		return st, &BuildError{Message: "failed to open input", Cause: err}
	}
	defer rf.Close()

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return st, &BuildError{Message: "failed to create output directory", Cause: err}
	}
	wf, err := os.Create(out)
	if err != nil {
		return st, &BuildError{Message: "failed to create output", Cause: err}
	}
	defer wf.Close()
	w := bufio.NewWriterSize(wf, 256*1024)

	read, err := ingestion.ReadRecords(rf, func(rec ingestion.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines, ast, err := proc.Article(rec)
		st.Add(ast)
		if err != nil {
			return &BuildError{Message: fmt.Sprintf("failed to tokenize %q", rec.Title), Cause: err}
		}
		for _, l := range lines {
			if _, err := w.WriteString(l); err != nil {
				return &BuildError{Message: "failed to write output", Cause: err}
			}
			if err := w.WriteByte('\n'); err != nil {
				return &BuildError{Message: "failed to write output", Cause: err}
			}
		}
		return nil
	})
	st.Records += read.Records
	st.Malformed += read.Malformed
	if err != nil {
		return st, err
	}
	if err := w.Flush(); err != nil {
		return st, &BuildError{Message: "failed to flush output", Cause: err}
	}
	if err := wf.Close(); err != nil {
		return st, &BuildError{Message: "failed to close output", Cause: err}
	}
	return st, nil
}
