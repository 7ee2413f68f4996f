// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jawiki-corpus/internal/schemas"
)

// LatestVersion selects the newest dump that has an articles file.
const LatestVersion = "latest"

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	WorkDir       string `json:"work_dir,omitempty"`      // Directory holding dumps, extracted text, corpora and models
	WikiExtractor string `json:"wikiextractor,omitempty"` // wikiextractor executable
	FastText      string `json:"fasttext,omitempty"`      // fasttext executable

	// Dump
	Version string `json:"version,omitempty" validate:"omitempty,version"` // YYYYMMDD or "latest"
	Mirror  string `json:"mirror,omitempty" validate:"omitempty,url"`      // Dump index URL

	// Segmentation
	Analyzer    string `json:"analyzer,omitempty" validate:"omitempty,oneof=kagome mecab"`
	Dictionary  string `json:"dictionary,omitempty"`
	MeCabPath   string `json:"mecab_path,omitempty"`
	BaseForm    bool   `json:"base_form,omitempty"`
	Substitute  bool   `json:"substitute,omitempty"`
	MinTitleLen int    `json:"min_title_len,omitempty" validate:"omitempty,min=2"`
	MinTokens   int    `json:"min_tokens,omitempty" validate:"omitempty,min=1"`
	Workers     int    `json:"workers,omitempty" validate:"omitempty,min=1"`
	Compress    bool   `json:"compress,omitempty"`

	// Training
	Model    string `json:"model,omitempty" validate:"omitempty,oneof=skipgram cbow"`
	Dim      int    `json:"dim,omitempty" validate:"omitempty,min=1"`
	Epoch    int    `json:"epoch,omitempty" validate:"omitempty,min=1"`
	MinCount int    `json:"min_count,omitempty" validate:"omitempty,min=1"`

	// Behavior
	LogFormat   string `json:"log_format,omitempty" validate:"omitempty,oneof=text json"`
	Verbose     bool   `json:"verbose,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// Defaults returns the values used when neither the config file nor a flag sets a field.
func Defaults() Config {
	return Config{
		WorkDir:       ".",
		WikiExtractor: "wikiextractor",
		FastText:      "fasttext",
		Version:       LatestVersion,
		Mirror:        "https://dumps.wikimedia.org/jawiki/",
		Analyzer:      "kagome",
		MinTitleLen:   3,
		MinTokens:     5,
		Model:         "skipgram",
		Dim:           300,
		Epoch:         10,
		MinCount:      5,
		LogFormat:     "text",
	}
}

// LoadConfig loads configuration from a JSON file.
// The document is checked against the embedded config schema before decoding.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := schemas.Validate(schemas.Config, data); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("version", func(fl validator.FieldLevel) bool {
		return ValidVersion(fl.Field().String())
	})
	return v
}

// ValidVersion reports whether v names a dump: "latest" or eight digits.
func ValidVersion(v string) bool {
	if v == LatestVersion {
		return true
	}
	if len(v) != 8 {
		return false
	}
	return strings.Trim(v, "0123456789") == ""
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' fails '%s' (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.MeCabPath != "" && c.Analyzer != "" && c.Analyzer != "mecab" {
		return fmt.Errorf("config error: 'mecab_path' requires analyzer 'mecab'")
	}
	if c.Analyzer == "kagome" {
		switch c.Dictionary {
		case "", "ipa", "uni":
		default:
			return fmt.Errorf("config error: kagome has no dictionary %q", c.Dictionary)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	mergeString(&result.WorkDir, defaults.WorkDir)
	mergeString(&result.WikiExtractor, defaults.WikiExtractor)
	mergeString(&result.FastText, defaults.FastText)
	mergeString(&result.Version, defaults.Version)
	mergeString(&result.Mirror, defaults.Mirror)
	mergeString(&result.Analyzer, defaults.Analyzer)
	mergeString(&result.Dictionary, defaults.Dictionary)
	mergeString(&result.MeCabPath, defaults.MeCabPath)
	mergeString(&result.Model, defaults.Model)
	mergeString(&result.LogFormat, defaults.LogFormat)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)

	// Int fields: use default if zero
	mergeInt(&result.MinTitleLen, defaults.MinTitleLen)
	mergeInt(&result.MinTokens, defaults.MinTokens)
	mergeInt(&result.Workers, defaults.Workers)
	mergeInt(&result.Dim, defaults.Dim)
	mergeInt(&result.Epoch, defaults.Epoch)
	mergeInt(&result.MinCount, defaults.MinCount)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
