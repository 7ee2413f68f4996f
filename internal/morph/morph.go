// Package morph wraps Japanese morphological analyzers behind a single
// interface reporting morphemes with rune offsets.
package morph

import (
	"fmt"
	"strings"
)

// Morpheme is one node of an analysis. Start and End are rune offsets into
// the analyzed text; BaseForm is the dictionary form when the analyzer knows
// it.
type Morpheme struct {
	Surface  string
	Start    int
	End      int
	BaseForm string
}

// Lemma returns the base form, or the surface when the analyzer reported no
// usable base form.
func (m Morpheme) Lemma() string {
	switch m.BaseForm {
	case "", "*", "UNK":
		return m.Surface
	}
	return m.BaseForm
}

// Analyzer splits text into morphemes. Implementations are not required to be
// safe for concurrent use; each worker owns its own instance.
type Analyzer interface {
	Analyze(text string) ([]Morpheme, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendKagome = "kagome"
	BackendMeCab  = "mecab"
)

// Options selects and configures an analyzer.
type Options struct {
	// Backend is BackendKagome or BackendMeCab.
	Backend string
	// Dictionary is "ipa" or "uni" for kagome; "ipa", "juman", "neologd" or
	// a dictionary directory for mecab.
	Dictionary string
	// MeCabPath overrides the mecab executable.
	MeCabPath string
}

// AnalyzerError reports an analyzer that could not be created or failed while
// running.
type AnalyzerError struct {
	Backend string
	Message string
	Cause   error
}

func (e *AnalyzerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s analyzer: %s: %v", e.Backend, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s analyzer: %s", e.Backend, e.Message)
}

func (e *AnalyzerError) Unwrap() error {
	return e.Cause
}

// Open creates the analyzer described by opts.
func Open(opts Options) (Analyzer, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendKagome:
		return NewKagome(opts.Dictionary)
	case BackendMeCab:
		return StartMeCab(MeCabOptions{Path: opts.MeCabPath, Dictionary: opts.Dictionary})
	}
	return nil, &AnalyzerError{Backend: opts.Backend, Message: "unknown backend"}
}
