// Package substitute replaces every literal occurrence of a known article
// title in a text with its canonical form and protects the replacement as a
// span, without ever touching text that is already protected.
package substitute

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/jawiki-corpus/internal/spans"
	"github.com/jonathan/jawiki-corpus/internal/titles"
)

// DefaultMinTitleLen is the shortest raw title, in runes, that is substituted.
// Shorter titles match far too many ordinary words.
const DefaultMinTitleLen = 3

// excludedChars disqualify a title: they mark disambiguation qualifiers and
// titles that are mostly punctuation.
const excludedChars = `()+?!\*`

type title struct {
	raw       string
	canonical string
	rawLen    int
	canonLen  int
}

// prefix is the first two runes of a title.
type prefix [2]rune

// Engine applies a fixed title dictionary. It is immutable after NewEngine and
// safe for concurrent use.
type Engine struct {
	titles []title // precedence order
	index  map[prefix][]int
}

// NewEngine builds an Engine from dict. Titles shorter than minTitleLen runes
// (DefaultMinTitleLen when minTitleLen is not positive) or containing any of
// ( ) + ? ! \ * are left out.
func NewEngine(dict titles.Dictionary, minTitleLen int) *Engine {
	if minTitleLen <= 0 {
		minTitleLen = DefaultMinTitleLen
	}
	// The prefix index needs two runes.
	if minTitleLen < 2 {
		minTitleLen = 2
	}

	e := &Engine{index: make(map[prefix][]int)}
	for raw, canonical := range dict {
		n := utf8.RuneCountInString(raw)
		if n < minTitleLen || strings.ContainsAny(raw, excludedChars) || canonical == "" {
			continue
		}
		e.titles = append(e.titles, title{
			raw:       raw,
			canonical: canonical,
			rawLen:    n,
			canonLen:  utf8.RuneCountInString(canonical),
		})
	}

	// Longest first, ties broken lexicographically, so the order never depends
	// on map iteration.
	sort.Slice(e.titles, func(i, j int) bool {
		a, b := e.titles[i], e.titles[j]
		if a.rawLen != b.rawLen {
			return a.rawLen > b.rawLen
		}
		return a.raw < b.raw
	})

	for i, t := range e.titles {
		p := prefixOf(t.raw)
		e.index[p] = append(e.index[p], i)
	}
	return e
}

// Len returns the number of titles the engine substitutes.
func (e *Engine) Len() int {
	return len(e.titles)
}

func prefixOf(s string) prefix {
	var p prefix
	r0, n := utf8.DecodeRuneInString(s)
	r1, _ := utf8.DecodeRuneInString(s[n:])
	p[0], p[1] = r0, r1
	return p
}

// candidates returns, in precedence order, the titles whose first two runes
// occur somewhere in text. An occurrence that only comes into existence
// through an earlier substitution always overlaps the span that substitution
// created, so looking at the input text alone loses nothing.
func (e *Engine) candidates(text string) []int {
	seen := make(map[int]struct{})
	var out []int

	var prev rune
	first := true
	for _, r := range text {
		if !first {
			for _, i := range e.index[prefix{prev, r}] {
				if _, ok := seen[i]; !ok {
					seen[i] = struct{}{}
					out = append(out, i)
				}
			}
		}
		prev, first = r, false
	}
	sort.Ints(out)
	return out
}

// Apply substitutes titles into text, starting from the protected spans in
// protected, and returns the new text with the extended span set. The input
// set is not modified.
//
// Titles are tried longest first. For each title every non-overlapping
// occurrence in the current text is considered left to right; one that would
// intersect a protected span is skipped, any other is replaced and protected.
func (e *Engine) Apply(text string, protected spans.Set) (string, spans.Set) {
	set := protected.Clone()
	for _, i := range e.candidates(text) {
		text = e.substitute(text, &set, e.titles[i])
	}
	return text, set
}

type occurrence struct {
	byteStart int // in the text before this title's edits
	runeStart int
}

// substitute replaces the accepted occurrences of t and updates set.
func (e *Engine) substitute(text string, set *spans.Set, t title) string {
	occs := occurrences(text, t.raw)
	if len(occs) == 0 {
		return text
	}

	var (
		sb    strings.Builder
		last  int // bytes of text already copied
		delta int // rune drift from edits made for t so far
		diff  = t.canonLen - t.rawLen
	)
	for _, o := range occs {
		start := o.runeStart + delta
		if set.Overlaps(start, start+t.rawLen) {
			continue
		}
		set.Rebase(start, t.rawLen, t.canonLen)
		set.InsertIfNonOverlapping(spans.Span{Start: start, End: start + t.canonLen, Text: t.canonical})

		if sb.Len() == 0 {
			sb.Grow(len(text) + len(occs)*max(0, len(t.canonical)-len(t.raw)))
		}
		sb.WriteString(text[last:o.byteStart])
		sb.WriteString(t.canonical)
		last = o.byteStart + len(t.raw)
		delta += diff
	}
	if last == 0 {
		return text
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// occurrences finds the non-overlapping occurrences of raw in text, scanning
// left to right.
func occurrences(text, raw string) []occurrence {
	var (
		out      []occurrence
		bytePos  int
		runePos  int
		rawBytes = len(raw)
		rawRunes = utf8.RuneCountInString(raw)
	)
	for {
		i := strings.Index(text[bytePos:], raw)
		if i < 0 {
			return out
		}
		runePos += utf8.RuneCountInString(text[bytePos : bytePos+i])
		bytePos += i
		out = append(out, occurrence{byteStart: bytePos, runeStart: runePos})
		bytePos += rawBytes
		runePos += rawRunes
	}
}
