package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonathan/jawiki-corpus/internal/ingestion"
	"github.com/jonathan/jawiki-corpus/internal/titles"
	"github.com/jonathan/jawiki-corpus/internal/workers"
)

// TitleOptions configures CollectTitles.
type TitleOptions struct {
	InputDir string
	Filter   ingestion.Filter
	Workers  int
	Logger   *slog.Logger
	Progress func(done, total int)
}

// TitleStats counts what CollectTitles saw.
type TitleStats struct {
	Files      int `json:"files"`
	Records    int `json:"records"`
	Malformed  int `json:"malformed"`
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
}

type titleBatch struct {
	entries []titles.Entry
	read    ingestion.ReadStats
}

type titleHandler struct {
	x *titles.Extractor
}

func (h *titleHandler) Handle(ctx context.Context, path string) (titleBatch, error) {
	var b titleBatch
	f, err := os.Open(path)
	if err != nil {
		return b, &BuildError{Message: "failed to open input", Cause: err}
	}
	defer f.Close()

	b.read, err = ingestion.ReadRecords(f, func(rec ingestion.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e, ok := h.x.Extract(rec); ok {
			b.entries = append(b.entries, e)
		}
		return nil
	})
	return b, err
}

func (h *titleHandler) Close() error { return nil }

// CollectTitles builds the title dictionary from every extracted file under
// opts.InputDir. Files are merged in input order, so when two articles share a
// raw title the first one wins regardless of scheduling.
func CollectTitles(ctx context.Context, opts TitleOptions) (titles.Dictionary, TitleStats, error) {
	var st TitleStats
	if opts.Filter == (ingestion.Filter{}) {
		opts.Filter = ingestion.DefaultFilter()
	}
	files, err := InputFiles(opts.InputDir)
	if err != nil {
		return nil, st, err
	}
	if len(files) == 0 {
		return nil, st, &BuildError{Message: fmt.Sprintf("no extracted files under %s", opts.InputDir)}
	}

	batches, err := workers.Run(ctx, workers.Options{
		Workers:  opts.Workers,
		Logger:   opts.Logger,
		Progress: opts.Progress,
	}, files, func(int, workers.Logger) (workers.Handler[string, titleBatch], error) {
		return &titleHandler{x: titles.NewExtractor(opts.Filter)}, nil
	})
	if err != nil {
		return nil, st, err
	}

	dict := titles.Dictionary{}
	for _, b := range batches {
		st.Files++
		st.Records += b.read.Records
		st.Malformed += b.read.Malformed
		for _, e := range b.entries {
			if dict.Add(e) {
				st.Accepted++
			} else {
				st.Duplicates++
			}
		}
	}
	return dict, st, nil
}
