// Package tokenize segments sentences into words while keeping every
// protected span as exactly one word.
package tokenize

import (
	"sort"
	"strings"

	"github.com/jonathan/jawiki-corpus/internal/morph"
	"github.com/jonathan/jawiki-corpus/internal/spans"
)

// DefaultMinSentenceTokens is the shortest sentence, in words, worth keeping.
const DefaultMinSentenceTokens = 5

// Fragment is one output word placed at a rune offset of the sentence.
type Fragment struct {
	Start   int
	Surface string
	Output  string
}

// Tokenizer combines an analyzer with protected spans. It inherits the
// concurrency properties of its analyzer.
type Tokenizer struct {
	analyzer morph.Analyzer

	// UseBase emits dictionary forms instead of surfaces for analyzed words.
	UseBase bool
	// MinTokens is the minimum sentence length accepted by Line.
	MinTokens int
}

// New returns a Tokenizer using a.
func New(a morph.Analyzer, useBase bool) *Tokenizer {
	return &Tokenizer{analyzer: a, UseBase: useBase, MinTokens: DefaultMinSentenceTokens}
}

// Fragments segments sentence. Each protected span becomes one fragment
// carrying its text. An analyzer node that overlaps spans is dropped and the
// pieces of it outside the spans are analyzed again on their own. The result is
// ordered by Start.
func (t *Tokenizer) Fragments(sentence string, protected spans.Set) ([]Fragment, error) {
	frags := make([]Fragment, 0, protected.Len())
	for _, sp := range protected.Spans() {
		frags = append(frags, Fragment{Start: sp.Start, Surface: sp.Text, Output: sp.Text})
	}

	nodes, err := t.analyzer.Analyze(sentence)
	if err != nil {
		return nil, err
	}

	runes := []rune(sentence)
	for _, n := range nodes {
		if isBlank(n.Surface) {
			continue
		}
		overlapped := protected.Overlapping(n.Start, n.End)
		if len(overlapped) == 0 {
			frags = append(frags, t.fragment(n, 0))
			continue
		}

		cursor := n.Start
		for _, sp := range overlapped {
			if sp.Start > cursor {
				if frags, err = t.gap(frags, runes, cursor, sp.Start); err != nil {
					return nil, err
				}
			}
			cursor = max(cursor, sp.End)
		}
		if cursor < n.End {
			if frags, err = t.gap(frags, runes, cursor, n.End); err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].Start < frags[j].Start
	})
	return frags, nil
}

// gap analyzes runes[start:end] in isolation and appends its fragments with
// offsets moved back into the sentence.
func (t *Tokenizer) gap(frags []Fragment, runes []rune, start, end int) ([]Fragment, error) {
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return frags, nil
	}
	nodes, err := t.analyzer.Analyze(string(runes[start:end]))
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if isBlank(n.Surface) {
			continue
		}
		frags = append(frags, t.fragment(n, start))
	}
	return frags, nil
}

func (t *Tokenizer) fragment(m morph.Morpheme, offset int) Fragment {
	out := m.Surface
	if t.UseBase {
		out = m.Lemma()
	}
	return Fragment{Start: m.Start + offset, Surface: m.Surface, Output: out}
}

// Tokenize returns the output words of sentence in order.
func (t *Tokenizer) Tokenize(sentence string, protected spans.Set) ([]string, error) {
	frags, err := t.Fragments(sentence, protected)
	if err != nil {
		return nil, err
	}
	words := make([]string, len(frags))
	for i, f := range frags {
		words[i] = f.Output
	}
	return words, nil
}

// Line returns the sentence as space separated words. It reports false when
// the sentence has fewer than MinTokens words.
func (t *Tokenizer) Line(sentence string, protected spans.Set) (string, bool, error) {
	words, err := t.Tokenize(sentence, protected)
	if err != nil {
		return "", false, err
	}
	if len(words) < t.MinTokens {
		return "", false, nil
	}
	return strings.Join(words, " "), true, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
