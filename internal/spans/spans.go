// Package spans tracks protected character ranges inside a text buffer that is
// being rewritten.
//
// All offsets are rune offsets. A Set keeps its spans sorted by Start and never
// lets two of them overlap. Whenever the underlying text changes length, the
// caller must apply Rebase for that edit before inserting or querying anything
// else; every offset computed after the edit is only valid against the edited
// text.
package spans

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Span is a half-open range [Start, End) of the current text, occupied by Text.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// New returns the span that text occupies when placed at start.
func New(start int, text string) Span {
	return Span{Start: start, End: start + utf8.RuneCountInString(text), Text: text}
}

// Len returns the number of runes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether the span intersects [start, end).
// Ranges that only touch at a boundary do not overlap.
func (s Span) Overlaps(start, end int) bool {
	return start < s.End && s.Start < end
}

// Covers reports whether pos lies inside the span.
func (s Span) Covers(pos int) bool {
	return s.Start <= pos && pos < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%q[%d:%d]", s.Text, s.Start, s.End)
}

func (s Span) valid() bool {
	return s.Start >= 0 && s.End > s.Start && s.End-s.Start == utf8.RuneCountInString(s.Text)
}

// Set is an ordered collection of non-overlapping spans.
// The zero value is an empty set ready to use.
type Set struct {
	spans []Span
}

// NewSet builds a set from spans, dropping every span that is malformed or
// overlaps one inserted before it.
func NewSet(spans ...Span) Set {
	var s Set
	for _, sp := range spans {
		s.InsertIfNonOverlapping(sp)
	}
	return s
}

// Len returns the number of spans.
func (s *Set) Len() int {
	return len(s.spans)
}

// Spans returns a copy of the spans in ascending Start order.
func (s *Set) Spans() []Span {
	out := make([]Span, len(s.spans))
	copy(out, s.spans)
	return out
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() Set {
	return Set{spans: s.Spans()}
}

// InsertIfNonOverlapping inserts candidate unless it overlaps an existing span
// or is malformed (empty, negative, or End-Start not matching its text).
// It reports whether the span was inserted.
func (s *Set) InsertIfNonOverlapping(candidate Span) bool {
	if !candidate.valid() {
		return false
	}
	if s.Overlaps(candidate.Start, candidate.End) {
		return false
	}
	i := sort.Search(len(s.spans), func(i int) bool {
		return s.spans[i].Start >= candidate.Start
	})
	s.spans = append(s.spans, Span{})
	copy(s.spans[i+1:], s.spans[i:])
	s.spans[i] = candidate
	return true
}

// first returns the index of the first span that ends after start. Because the
// spans are sorted and disjoint, End is ascending as well, so every span before
// that index lies entirely before start.
func (s *Set) first(start int) int {
	return sort.Search(len(s.spans), func(i int) bool {
		return s.spans[i].End > start
	})
}

// Overlapping returns the spans intersecting [start, end) in ascending order.
//
// Each span is classified in one of three ways: it ends at or before start
// (skipped), it begins at or after end (the scan stops, nothing later can
// intersect), or it intersects the range.
func (s *Set) Overlapping(start, end int) []Span {
	if end <= start {
		return nil
	}
	var out []Span
	for i := s.first(start); i < len(s.spans); i++ {
		if s.spans[i].Start >= end {
			break
		}
		out = append(out, s.spans[i])
	}
	return out
}

// Overlaps reports whether any span intersects [start, end).
// An empty range intersects a span only when it lies strictly inside it.
func (s *Set) Overlaps(start, end int) bool {
	if end < start {
		return false
	}
	i := s.first(start)
	if i == len(s.spans) {
		return false
	}
	sp := s.spans[i]
	if end == start {
		return sp.Start < start
	}
	return sp.Start < end
}

// Covers reports whether pos lies inside any span.
func (s *Set) Covers(pos int) bool {
	i := s.first(pos)
	return i < len(s.spans) && s.spans[i].Covers(pos)
}

// Rebase records a text edit at editStart that replaced oldLen runes with
// newLen runes. Every span starting at or after editStart+oldLen moves by
// newLen-oldLen; spans before the edit keep their offsets.
//
// Rebase must be applied once per edit, in the order the edits are made, so
// that cumulative drift stays correct for everything downstream.
func (s *Set) Rebase(editStart, oldLen, newLen int) {
	diff := newLen - oldLen
	if diff == 0 {
		return
	}
	threshold := editStart + oldLen
	i := sort.Search(len(s.spans), func(i int) bool {
		return s.spans[i].Start >= threshold
	})
	for ; i < len(s.spans); i++ {
		s.spans[i].Start += diff
		s.spans[i].End += diff
	}
}

// Slice returns the spans lying entirely inside [start, end), re-based so
// that start becomes offset 0.
func (s *Set) Slice(start, end int) Set {
	var out Set
	for i := s.first(start); i < len(s.spans); i++ {
		sp := s.spans[i]
		if sp.End > end {
			break
		}
		if sp.Start < start {
			continue
		}
		sp.Start -= start
		sp.End -= start
		out.spans = append(out.spans, sp)
	}
	return out
}
