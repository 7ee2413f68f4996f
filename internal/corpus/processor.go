// Package corpus turns extracted Wikipedia articles into a word-segmented
// corpus: one line per sentence, words separated by single spaces, article
// titles kept as single words.
package corpus

import (
	"strings"

	"github.com/jonathan/jawiki-corpus/internal/anchors"
	"github.com/jonathan/jawiki-corpus/internal/ingestion"
	"github.com/jonathan/jawiki-corpus/internal/spans"
	"github.com/jonathan/jawiki-corpus/internal/substitute"
	"github.com/jonathan/jawiki-corpus/internal/titles"
	"github.com/jonathan/jawiki-corpus/internal/tokenize"
)

// Stats counts what happened to the input.
type Stats struct {
	Files             int `json:"files"`
	Records           int `json:"records"`
	Malformed         int `json:"malformed"`
	Articles          int `json:"articles"`
	SkippedArticles   int `json:"skipped_articles"`
	Lines             int `json:"lines"`
	Sentences         int `json:"sentences"`
	ShortSentences    int `json:"short_sentences"`
	Written           int `json:"written"`
	ResolvedAnchors   int `json:"resolved_anchors"`
	SubstitutedTitles int `json:"substituted_titles"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Files += o.Files
	s.Records += o.Records
	s.Malformed += o.Malformed
	s.Articles += o.Articles
	s.SkippedArticles += o.SkippedArticles
	s.Lines += o.Lines
	s.Sentences += o.Sentences
	s.ShortSentences += o.ShortSentences
	s.Written += o.Written
	s.ResolvedAnchors += o.ResolvedAnchors
	s.SubstitutedTitles += o.SubstitutedTitles
}

// Processor converts one article at a time. A Processor belongs to a single
// worker because its tokenizer owns an analyzer; the dictionary and the
// substitution engine may be shared.
type Processor struct {
	filter    ingestion.Filter
	resolver  *anchors.Resolver
	engine    *substitute.Engine
	tokenizer *tokenize.Tokenizer
}

// NewProcessor wires the per-article pipeline. engine may be nil to disable
// title substitution.
func NewProcessor(dict titles.Dictionary, engine *substitute.Engine, tok *tokenize.Tokenizer, filter ingestion.Filter) *Processor {
	r := anchors.NewResolver(dict)
	r.Normalize = ingestion.NormalizeText
	return &Processor{filter: filter, resolver: r, engine: engine, tokenizer: tok}
}

// line is an accepted article line with its protected spans.
type line struct {
	text  string
	spans spans.Set
}

// Article returns the output lines for rec. Articles that are too short or
// have too few usable lines produce nothing. Only analyzer failures are
// returned as errors.
func (p *Processor) Article(rec ingestion.Record) ([]string, Stats, error) {
	var st Stats
	if !p.filter.TextLongEnough(rec.Text) {
		st.SkippedArticles++
		return nil, st, nil
	}

	lines := p.acceptedLines(rec.Text, &st)
	if !p.filter.EnoughLines(len(lines)) {
		st.SkippedArticles++
		st.Lines, st.ResolvedAnchors = 0, 0
		return nil, st, nil
	}
	st.Articles++

	var out []string
	for _, l := range lines {
		text, set := l.text, l.spans
		if p.engine != nil {
			before := set.Len()
			text, set = p.engine.Apply(text, set)
			st.SubstitutedTitles += set.Len() - before
		}

		runes := []rune(text)
		for _, r := range p.filter.SplitSentences(text, &set) {
			st.Sentences++
			sentence := string(runes[r.Start:r.End])
			joined, ok, err := p.tokenizer.Line(sentence, set.Slice(r.Start, r.End))
			if err != nil {
				return nil, st, err
			}
			if !ok {
				st.ShortSentences++
				continue
			}
			out = append(out, joined)
			st.Written++
		}
	}
	return out, st, nil
}

// acceptedLines resolves anchors in each raw line and keeps the lines the
// filter accepts, stopping at the related-links section.
func (p *Processor) acceptedLines(text string, st *Stats) []line {
	var out []line
	for _, raw := range ingestion.Lines(text) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		// Parentheticals may enclose links, so they go before chunking.
		res := p.resolver.Resolve(ingestion.StripLineNoise(raw))
		verdict := p.filter.Classify(res.Text)
		if verdict == ingestion.Stop {
			break
		}
		if verdict == ingestion.Skip {
			continue
		}
		st.Lines++
		st.ResolvedAnchors += res.Spans.Len()
		out = append(out, line{text: res.Text, spans: res.Spans})
	}
	return out
}
