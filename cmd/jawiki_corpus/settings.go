package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/jawiki-corpus/internal/config"
	"github.com/jonathan/jawiki-corpus/internal/logging"
	"github.com/jonathan/jawiki-corpus/internal/observability"
)

// flagValues receives every flag; only flags the user set are copied over
// the config file.
var (
	configPath string
	flagValues config.Config
)

// overrides maps a flag name to the config field it sets.
var overrides = map[string]func(dst, src *config.Config){
	"work-dir":      func(d, s *config.Config) { d.WorkDir = s.WorkDir },
	"version":       func(d, s *config.Config) { d.Version = s.Version },
	"mirror":        func(d, s *config.Config) { d.Mirror = s.Mirror },
	"wikiextractor": func(d, s *config.Config) { d.WikiExtractor = s.WikiExtractor },
	"fasttext":      func(d, s *config.Config) { d.FastText = s.FastText },
	"analyzer":      func(d, s *config.Config) { d.Analyzer = s.Analyzer },
	"dictionary":    func(d, s *config.Config) { d.Dictionary = s.Dictionary },
	"mecab-path":    func(d, s *config.Config) { d.MeCabPath = s.MeCabPath },
	"base":          func(d, s *config.Config) { d.BaseForm = s.BaseForm },
	"substitute":    func(d, s *config.Config) { d.Substitute = s.Substitute },
	"min-title-len": func(d, s *config.Config) { d.MinTitleLen = s.MinTitleLen },
	"min-tokens":    func(d, s *config.Config) { d.MinTokens = s.MinTokens },
	"workers":       func(d, s *config.Config) { d.Workers = s.Workers },
	"compress":      func(d, s *config.Config) { d.Compress = s.Compress },
	"model":         func(d, s *config.Config) { d.Model = s.Model },
	"dim":           func(d, s *config.Config) { d.Dim = s.Dim },
	"epoch":         func(d, s *config.Config) { d.Epoch = s.Epoch },
	"min-count":     func(d, s *config.Config) { d.MinCount = s.MinCount },
	"log-format":    func(d, s *config.Config) { d.LogFormat = s.LogFormat },
	"verbose":       func(d, s *config.Config) { d.Verbose = s.Verbose },
	"db-url":        func(d, s *config.Config) { d.DatabaseURL = s.DatabaseURL },
}

func init() {
	pf := rootCmd.PersistentFlags()
	// Config file flag (processed first)
	pf.StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	pf.StringVarP(&flagValues.WorkDir, "work-dir", "w", "", "Directory for dumps, extracted text, corpora and models (default \".\")")
	pf.StringVarP(&flagValues.Version, "version", "V", "", "Dump version YYYYMMDD or \"latest\" (default \"latest\")")
	pf.BoolVarP(&flagValues.Verbose, "verbose", "v", false, "Print debug logs")
	pf.StringVar(&flagValues.LogFormat, "log-format", "", "Log format: text or json (default \"text\")")
	// Database URL for the run ledger and title store
	pf.StringVar(&flagValues.DatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
}

// Flag groups shared by several subcommands.

func addDownloadFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flagValues.Mirror, "mirror", "", "Dump index URL (default \"https://dumps.wikimedia.org/jawiki/\")")
}

func addExtractFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flagValues.WikiExtractor, "wikiextractor", "", "wikiextractor executable")
}

func addWorkerFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&flagValues.Workers, "workers", "j", 0, "Worker count (default: CPUs - 1)")
}

func addTokenizeFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&flagValues.Analyzer, "analyzer", "a", "", "Morphological analyzer: kagome or mecab (default \"kagome\")")
	fs.StringVarP(&flagValues.Dictionary, "dictionary", "d", "", "Analyzer dictionary (kagome: ipa, uni; mecab: ipadic, juman, neologd or a path)")
	fs.StringVar(&flagValues.MeCabPath, "mecab-path", "", "mecab executable")
	fs.BoolVarP(&flagValues.BaseForm, "base", "b", false, "Write base forms instead of surfaces")
	fs.BoolVar(&flagValues.Substitute, "substitute", false, "Replace article titles in running text by their canonical form")
	fs.IntVar(&flagValues.MinTitleLen, "min-title-len", 0, "Shortest title considered for substitution (default 3)")
	fs.IntVar(&flagValues.MinTokens, "min-tokens", 0, "Fewest tokens a sentence needs to be kept (default 5)")
	fs.BoolVarP(&flagValues.Compress, "compress", "z", false, "Write the corpus xz-compressed")
}

func addTrainFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flagValues.FastText, "fasttext", "", "fasttext executable")
	fs.StringVar(&flagValues.Model, "model", "", "fastText model: skipgram or cbow (default \"skipgram\")")
	fs.IntVar(&flagValues.Dim, "dim", 0, "Vector dimension (default 300)")
	fs.IntVar(&flagValues.Epoch, "epoch", 0, "Training epochs (default 10)")
	fs.IntVar(&flagValues.MinCount, "min-count", 0, "Minimal word occurrences (default 5)")
}

// env is everything a subcommand needs once flags are resolved.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	printer *observability.Printer
}

// loadSettings merges the config file, flags the user set and defaults, in
// that order of precedence: flags, then file, then defaults.
func loadSettings(cmd *cobra.Command) (*env, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Command-line args take priority
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(&cfg, &flagValues)
		}
	})

	cfg = cfg.MergeWithDefaults(config.Defaults())

	// Database URL handling
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger := logging.Init(cmd.ErrOrStderr(), format, cfg.Verbose)
	if configPath != "" {
		logger.Debug("loaded config", "path", configPath)
	}

	return &env{
		cfg:     cfg,
		logger:  logger,
		printer: observability.NewPrinter(cmd.OutOrStdout()),
	}, nil
}
