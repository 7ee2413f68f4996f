// Package titles builds the dictionary that maps raw Wikipedia article titles
// to the surface form used in the corpus, and reads and writes it as CSV.
package titles

import (
	"regexp"
	"strings"

	"github.com/jonathan/jawiki-corpus/internal/anchors"
	"github.com/jonathan/jawiki-corpus/internal/ingestion"
)

// disambiguationRegex removes qualifiers such as " (会社)" from titles. It is
// greedy on purpose and cuts from the first "(" to the last ")"; making it
// lazy would change which titles end up in the dictionary.
var disambiguationRegex = regexp.MustCompile(`\(.*\)`)

// Entry pairs a raw title with its normalized form.
type Entry struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// Dictionary maps raw titles to normalized titles. It is read-only once
// built and safe to share between goroutines.
type Dictionary map[string]string

// Lookup returns the normalized title for raw.
func (d Dictionary) Lookup(raw string) (string, bool) {
	v, ok := d[raw]
	return v, ok
}

// Add records e unless its raw title is already present. It reports whether
// the entry was added.
func (d Dictionary) Add(e Entry) bool {
	if e.Raw == "" || e.Normalized == "" {
		return false
	}
	if _, ok := d[e.Raw]; ok {
		return false
	}
	d[e.Raw] = e.Normalized
	return true
}

// Normalize folds a raw title into the form the article text uses.
func Normalize(title string) string {
	normalized := ingestion.CleanText(title)
	normalized = disambiguationRegex.ReplaceAllString(normalized, "")
	return strings.TrimSpace(normalized)
}

// Extractor decides which articles contribute a title to the dictionary.
// Only articles with real prose qualify; stubs, redirects and list pages
// would otherwise flood the dictionary with noise.
type Extractor struct {
	Filter ingestion.Filter

	markup *anchors.Resolver
}

// NewExtractor returns an Extractor using filter.
func NewExtractor(filter ingestion.Filter) *Extractor {
	r := anchors.NewResolver(Dictionary{})
	r.Normalize = ingestion.NormalizeText
	return &Extractor{Filter: filter, markup: r}
}

// Extract returns the dictionary entry for rec, or false when the article
// does not qualify or its title normalizes to nothing.
func (x *Extractor) Extract(rec ingestion.Record) (Entry, bool) {
	if !x.Filter.TextLongEnough(rec.Text) || rec.Title == "" {
		return Entry{}, false
	}
	if !x.Filter.EnoughLines(x.validLines(rec.Text)) {
		return Entry{}, false
	}
	normalized := Normalize(rec.Title)
	if normalized == "" {
		return Entry{}, false
	}
	return Entry{Raw: rec.Title, Normalized: normalized}, true
}

func (x *Extractor) validLines(text string) int {
	n := 0
	for _, line := range ingestion.Lines(text) {
		// Anchors are flattened to their visible text before measuring.
		plain := x.markup.Resolve(ingestion.StripLineNoise(strings.TrimSpace(line))).Text
		switch x.Filter.Classify(plain) {
		case ingestion.Stop:
			return n
		case ingestion.Keep:
			n++
		}
	}
	return n
}
