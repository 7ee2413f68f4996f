package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jawiki-corpus/internal/ingestion"
	"github.com/jonathan/jawiki-corpus/internal/morph"
	"github.com/jonathan/jawiki-corpus/internal/substitute"
	"github.com/jonathan/jawiki-corpus/internal/titles"
	"github.com/jonathan/jawiki-corpus/internal/tokenize"
	"github.com/jonathan/jawiki-corpus/internal/workers"
)

// Options configures Build.
type Options struct {
	// RunID identifies the build; a new UUID when empty.
	RunID    string
	InputDir string
	// Output is the corpus path. A ".xz" suffix compresses it.
	Output  string
	Version string

	Dictionary  titles.Dictionary
	Substitute  bool
	MinTitleLen int

	Analyzer  morph.Options
	UseBase   bool
	MinTokens int
	Filter    ingestion.Filter

	Workers  int
	Logger   *slog.Logger
	Progress func(done, total int)
}

// Result is what Build produced.
type Result struct {
	Manifest     Manifest
	ManifestPath string
}

type fileTask struct {
	Input  string
	Output string
}

type fileHandler struct {
	analyzer morph.Analyzer
	proc     *Processor
	log      workers.Logger
}

func (h *fileHandler) Handle(ctx context.Context, t fileTask) (Stats, error) {
	st, err := ProcessFile(ctx, h.proc, t.Input, t.Output)
	if err != nil {
		return st, err
	}
	h.log.Debug("file done", "input", t.Input, "articles", st.Articles, "written", st.Written)
	return st, nil
}

func (h *fileHandler) Close() error {
	return h.analyzer.Close()
}

// Build segments every file under opts.InputDir on a worker pool and
// assembles the per-file outputs, in input order, into opts.Output.
func Build(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Filter == (ingestion.Filter{}) {
		opts.Filter = ingestion.DefaultFilter()
	}
	if opts.MinTokens <= 0 {
		opts.MinTokens = tokenize.DefaultMinSentenceTokens
	}
	if opts.Dictionary == nil {
		opts.Dictionary = titles.Dictionary{}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	files, err := InputFiles(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &BuildError{Message: fmt.Sprintf("no extracted files under %s", opts.InputDir)}
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return nil, &BuildError{Message: "failed to create output directory", Cause: err}
	}
	partsDir, err := os.MkdirTemp(filepath.Dir(opts.Output), ".corpus-parts-*")
	if err != nil {
		return nil, &BuildError{Message: "failed to create work directory", Cause: err}
	}
	defer os.RemoveAll(partsDir)

	tasks := make([]fileTask, len(files))
	parts := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(opts.InputDir, f)
		if err != nil {
			rel = filepath.Base(f)
		}
		parts[i] = filepath.Join(partsDir, rel)
		tasks[i] = fileTask{Input: f, Output: parts[i]}
	}

	var engine *substitute.Engine
	if opts.Substitute {
		engine = substitute.NewEngine(opts.Dictionary, opts.MinTitleLen)
		logger.Info("title substitution enabled", "titles", engine.Len())
	}

	factory := func(id int, log workers.Logger) (workers.Handler[fileTask, Stats], error) {
		a, err := morph.Open(opts.Analyzer)
		if err != nil {
			return nil, err
		}
		tok := tokenize.New(a, opts.UseBase)
		tok.MinTokens = opts.MinTokens
		return &fileHandler{
			analyzer: a,
			proc:     NewProcessor(opts.Dictionary, engine, tok, opts.Filter),
			log:      log,
		}, nil
	}

	started := time.Now()
	logger.Info("segmenting", "files", len(files), "input", opts.InputDir)
	perFile, err := workers.Run(ctx, workers.Options{
		Workers:  opts.Workers,
		Logger:   logger,
		Progress: opts.Progress,
	}, tasks, factory)
	if err != nil {
		return nil, err
	}

	var total Stats
	for _, st := range perFile {
		total.Add(st)
	}

	digest, size, err := Assemble(parts, opts.Output)
	if err != nil {
		return nil, err
	}

	m := Manifest{
		RunID:      opts.RunID,
		CreatedAt:  time.Now().UTC(),
		Version:    opts.Version,
		InputDir:   opts.InputDir,
		Output:     opts.Output,
		Compressed: Compressed(opts.Output),
		Size:       size,
		BLAKE3:     digest,
		Analyzer:   analyzerName(opts.Analyzer),
		Dictionary: opts.Analyzer.Dictionary,
		BaseForm:   opts.UseBase,
		Titles:     len(opts.Dictionary),
		Stats:      total,
	}
	path := ManifestPath(opts.Output)
	if err := WriteManifest(path, m); err != nil {
		return nil, err
	}
	logger.Info("corpus written",
		"output", opts.Output,
		"sentences", total.Written,
		"articles", total.Articles,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return &Result{Manifest: m, ManifestPath: path}, nil
}

func analyzerName(o morph.Options) string {
	if o.Backend == "" {
		return morph.BackendKagome
	}
	return o.Backend
}
