// Package pipeline provides the high-level orchestration of a corpus build:
// download, extract, titles, tokenize and train. Every stage is skipped when
// its output already exists, so an interrupted build resumes where it stopped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/jawiki-corpus/internal/config"
	"github.com/jonathan/jawiki-corpus/internal/corpus"
	"github.com/jonathan/jawiki-corpus/internal/db"
	"github.com/jonathan/jawiki-corpus/internal/fetch"
	"github.com/jonathan/jawiki-corpus/internal/morph"
	"github.com/jonathan/jawiki-corpus/internal/observability"
	"github.com/jonathan/jawiki-corpus/internal/titles"
	"github.com/jonathan/jawiki-corpus/internal/toolchain"
	"github.com/jonathan/jawiki-corpus/internal/workers"
)

// ProgressEvent represents a stage transition during a build
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Version string `json:"version"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// ProgressCallback is called when a stage starts, finishes or is skipped
type ProgressCallback func(event ProgressEvent)

// Runner runs the stages of a build with one resolved configuration.
type Runner struct {
	Config config.Config
	Logger *slog.Logger
	// Printer receives progress bars and summaries; output is dropped when nil.
	Printer *observability.Printer
	// DB, when set, records every stage in the run ledger and stores titles.
	DB         *db.DB
	Fetch      *fetch.Options
	OnProgress ProgressCallback
}

// RunOptions holds switches of a full build
type RunOptions struct {
	SkipTrain bool
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) printer() *observability.Printer {
	if r.Printer == nil {
		r.Printer = observability.NewPrinter(io.Discard)
	}
	return r.Printer
}

// emitProgress calls the progress callback if configured
func (r *Runner) emitProgress(stage, version, message string, runID uuid.UUID, skipped bool) {
	if r.OnProgress == nil {
		return
	}
	ev := ProgressEvent{Stage: stage, Version: version, Message: message, Skipped: skipped}
	if runID != uuid.Nil {
		ev.RunID = runID.String()
	}
	r.OnProgress(ev)
}

func (r *Runner) skip(stage, version, message string, args ...any) {
	r.logger().Info(message, args...)
	r.emitProgress(stage, version, message, uuid.Nil, true)
}

// record runs fn as one ledger entry. Without a database fn still runs under
// a fresh run ID. fn returns the document stored with the finished run.
func (r *Runner) record(ctx context.Context, version, stage string, fn func(runID uuid.UUID) (any, error)) error {
	runID := uuid.New()
	r.emitProgress(stage, version, "started", runID, false)

	if r.DB == nil {
		_, err := fn(runID)
		if err == nil {
			r.emitProgress(stage, version, "completed", runID, false)
		}
		return err
	}

	if _, err := r.DB.CreateRun(ctx, runID, version, stage); err != nil {
		return err
	}
	r.logger().Debug("run recorded", "run_id", runID, "stage", stage)

	manifest, runErr := fn(runID)
	// Record the outcome even when ctx was cancelled.
	if err := r.DB.CompleteRun(context.WithoutCancel(ctx), runID, manifest, runErr); err != nil {
		if runErr != nil {
			return fmt.Errorf("%w (and %v)", runErr, err)
		}
		return err
	}
	if runErr == nil {
		r.emitProgress(stage, version, "completed", runID, false)
	}
	return runErr
}

var (
	versionDir  = regexp.MustCompile(`^jawiki_(\d{8})$`)
	versionDump = regexp.MustCompile(`^jawiki-(\d{8})-pages-articles-multistream\.xml\.bz2$`)
)

// LocalVersion resolves "latest" against what is already in the work
// directory: the newest version with a dump or an extracted tree.
func (r *Runner) LocalVersion() (string, error) {
	if r.Config.Version != config.LatestVersion {
		return r.Config.Version, nil
	}
	entries, err := os.ReadDir(r.Config.WorkDir)
	if err != nil {
		return "", fmt.Errorf("failed to read work directory: %w", err)
	}
	var versions []string
	for _, entry := range entries {
		name := entry.Name()
		if m := versionDir.FindStringSubmatch(name); m != nil && entry.IsDir() {
			versions = append(versions, m[1])
		} else if m := versionDump.FindStringSubmatch(name); m != nil {
			versions = append(versions, m[1])
		}
	}
	if len(versions) == 0 {
		abs, _ := filepath.Abs(r.Config.WorkDir)
		return "", fmt.Errorf("no dump found in %s; run download first or pass --version", abs)
	}
	sort.Strings(versions)
	return versions[len(versions)-1], nil
}

// Download makes sure the dump is available locally and returns its version.
func (r *Runner) Download(ctx context.Context) (string, error) {
	cfg := r.Config
	if cfg.Version != config.LatestVersion {
		l := cfg.NewLayout(cfg.Version)
		if exists(l.Extracted()) || exists(l.Dump()) {
			r.skip(db.StageDownload, cfg.Version, "dump already present, skipping download", "version", cfg.Version)
			return cfg.Version, nil
		}
	}

	dump, err := fetch.Discover(ctx, cfg.Mirror, cfg.Version, r.Fetch)
	if err != nil {
		return "", err
	}
	l := cfg.NewLayout(dump.Version)
	r.logger().Info("dump found", "version", dump.Version, "url", dump.URL)
	if exists(l.Extracted()) {
		r.skip(db.StageDownload, dump.Version, "already extracted, skipping download", "dir", l.Extracted())
		return dump.Version, nil
	}

	err = r.record(ctx, dump.Version, db.StageDownload, func(uuid.UUID) (any, error) {
		p := r.printer()
		p.Stage("download")
		var last int64 = -1
		downloaded, err := fetch.Download(ctx, dump.URL, l.Dump(), r.Fetch, func(written, total int64) {
			if total <= 0 {
				return
			}
			// Redraw at most once per percent.
			if pct := written * 100 / total; pct != last {
				last = pct
				p.Progress(int(pct), 100)
			}
		})
		if err != nil {
			return nil, err
		}
		p.PrintDump(dump.Version, dump.URL, l.Dump(), downloaded)
		return dump, nil
	})
	if err != nil {
		return "", err
	}
	return dump.Version, nil
}

// Extract runs wikiextractor on the dump of version.
func (r *Runner) Extract(ctx context.Context, version string) error {
	l := r.Config.NewLayout(version)
	if exists(l.Extracted()) {
		r.skip(db.StageExtract, version, "already extracted, skipping", "dir", l.Extracted())
		return nil
	}
	return r.record(ctx, version, db.StageExtract, func(uuid.UUID) (any, error) {
		processes := r.Config.Workers
		if processes <= 0 {
			processes = workers.DefaultWorkers()
		}
		_, err := toolchain.Extract(ctx, toolchain.ExtractOptions{
			Tool:      r.Config.WikiExtractor,
			Dump:      l.Dump(),
			Output:    l.Extracted(),
			Processes: processes,
			Logger:    r.logger(),
		})
		return nil, err
	})
}

// Titles returns the title dictionary of version, building it when the CSV
// is missing or force is set.
func (r *Runner) Titles(ctx context.Context, version string, force bool) (titles.Dictionary, error) {
	l := r.Config.NewLayout(version)
	if !force {
		dict, err := titles.Load(l.Titles())
		if err == nil {
			r.skip(db.StageTitles, version, "title dictionary loaded", "path", l.Titles(), "titles", len(dict))
			return dict, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	var dict titles.Dictionary
	err := r.record(ctx, version, db.StageTitles, func(uuid.UUID) (any, error) {
		p := r.printer()
		p.Stage("titles")
		var st corpus.TitleStats
		var err error
		dict, st, err = corpus.CollectTitles(ctx, corpus.TitleOptions{
			InputDir: l.Extracted(),
			Workers:  r.Config.Workers,
			Logger:   r.logger(),
			Progress: p.Progress,
		})
		if err != nil {
			return nil, err
		}
		if err := titles.Save(l.Titles(), dict); err != nil {
			return nil, err
		}
		if r.DB != nil {
			n, err := r.DB.SaveTitles(ctx, version, dict)
			if err != nil {
				return nil, err
			}
			r.logger().Info("titles stored", "rows", n)
		}
		p.PrintTitles(st, l.Titles())
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return dict, nil
}

// Tokenize builds the corpus of version and returns its manifest.
func (r *Runner) Tokenize(ctx context.Context, version string) (*corpus.Manifest, error) {
	l := r.Config.NewLayout(version)
	dict, err := r.Titles(ctx, version, false)
	if err != nil {
		return nil, err
	}

	var manifest *corpus.Manifest
	err = r.record(ctx, version, db.StageTokenize, func(runID uuid.UUID) (any, error) {
		p := r.printer()
		p.Stage("tokenize")
		res, err := corpus.Build(ctx, r.buildOptions(runID, version, l.Extracted(), l.Corpus(), dict))
		if err != nil {
			return nil, err
		}
		manifest = &res.Manifest
		p.PrintCorpus(manifest)
		return manifest, nil
	})
	return manifest, err
}

func (r *Runner) buildOptions(runID uuid.UUID, version, input, output string, dict titles.Dictionary) corpus.Options {
	cfg := r.Config
	return corpus.Options{
		RunID:       runID.String(),
		InputDir:    input,
		Output:      output,
		Version:     version,
		Dictionary:  dict,
		Substitute:  cfg.Substitute,
		MinTitleLen: cfg.MinTitleLen,
		Analyzer: morph.Options{
			Backend:    cfg.Analyzer,
			Dictionary: cfg.Dictionary,
			MeCabPath:  cfg.MeCabPath,
		},
		UseBase:   cfg.BaseForm,
		MinTokens: cfg.MinTokens,
		Workers:   cfg.Workers,
		Logger:    r.logger(),
		Progress:  r.printer().Progress,
	}
}

// Train runs fasttext on the corpus of version.
func (r *Runner) Train(ctx context.Context, version string) error {
	l := r.Config.NewLayout(version)
	if exists(l.Model() + ".bin") {
		r.skip(db.StageTrain, version, "model exists, skipping", "model", l.Model()+".bin")
		r.printer().PrintModel(l.Model(), false)
		return nil
	}
	return r.record(ctx, version, db.StageTrain, func(uuid.UUID) (any, error) {
		_, err := toolchain.Train(ctx, toolchain.TrainOptions{
			Tool:     r.Config.FastText,
			Input:    l.Corpus(),
			Output:   l.Model(),
			Model:    r.Config.Model,
			Dim:      r.Config.Dim,
			Epoch:    r.Config.Epoch,
			MinCount: r.Config.MinCount,
			Threads:  r.Config.Workers,
			Logger:   r.logger(),
		})
		if err != nil {
			return nil, err
		}
		r.printer().PrintModel(l.Model(), true)
		return nil, nil
	})
}

// RunSummary is stored in the ledger entry of a full build.
type RunSummary struct {
	Version string `json:"version"`
	Corpus  string `json:"corpus"`
	Model   string `json:"model,omitempty"`
}

// Run orchestrates the full build: download -> extract -> titles -> tokenize -> train.
// Once the version is known the remaining stages are recorded under one run.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	version, err := r.Download(ctx)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	l := r.Config.NewLayout(version)

	return r.record(ctx, version, db.StagePipeline, func(uuid.UUID) (any, error) {
		summary := RunSummary{Version: version, Corpus: l.Corpus()}
		if err := r.Extract(ctx, version); err != nil {
			return nil, fmt.Errorf("extraction failed: %w", err)
		}
		if exists(l.Corpus()) {
			r.skip(db.StageTokenize, version, "corpus exists, skipping tokenize", "corpus", l.Corpus())
		} else if _, err := r.Tokenize(ctx, version); err != nil {
			return nil, fmt.Errorf("tokenization failed: %w", err)
		}
		if opts.SkipTrain {
			return summary, nil
		}
		if err := r.Train(ctx, version); err != nil {
			return nil, fmt.Errorf("training failed: %w", err)
		}
		summary.Model = l.Model()
		return summary, nil
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
