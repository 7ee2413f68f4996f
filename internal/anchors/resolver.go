// Package anchors resolves inline <a href="..."> markup in article text into
// canonical titles, recording where each title landed in the rewritten text.
package anchors

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/jonathan/jawiki-corpus/internal/spans"
)

// Dictionary maps a decoded link target to its canonical display title.
type Dictionary interface {
	Lookup(raw string) (canonical string, ok bool)
}

// Record describes one resolved anchor. Start and End are rune offsets in the
// rewritten text, where Canonical now sits in place of Surface.
type Record struct {
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Href      string `json:"href"`
	Canonical string `json:"canonical"`
	Surface   string `json:"surface"`
}

// Result is the rewritten text together with the ranges occupied by resolved
// anchors.
type Result struct {
	Text    string
	Spans   spans.Set
	Anchors []Record
}

// Resolver rewrites anchor markup. It holds no per-document state, so a single
// Resolver can be shared by concurrent callers as long as Normalize is safe
// for concurrent use.
type Resolver struct {
	dict Dictionary

	// Normalize, when set, is applied to every chunk of plain text before it
	// is emitted. Canonical titles are emitted as-is.
	Normalize func(string) string
}

// NewResolver returns a Resolver backed by dict.
func NewResolver(dict Dictionary) *Resolver {
	return &Resolver{dict: dict}
}

type scanState int

const (
	outside scanState = iota
	insideResolvable
	insideUnresolvable
)

// state is the scanner position plus whatever the open anchor carries.
type state struct {
	kind scanState

	href       string
	canonical  string
	surface    strings.Builder
	hasSurface bool
}

// output accumulates rewritten text and tracks its length in runes.
type output struct {
	r       *Resolver
	buf     strings.Builder
	runes   int
	spans   spans.Set
	anchors []Record
}

func (o *output) text(s string) {
	if o.r.Normalize != nil {
		s = o.r.Normalize(s)
	}
	o.buf.WriteString(s)
	o.runes += utf8.RuneCountInString(s)
}

func (o *output) canonical(st *state) {
	sp := spans.New(o.runes, st.canonical)
	if !o.spans.InsertIfNonOverlapping(sp) {
		// Only an empty canonical title can be rejected here, since output
		// offsets grow monotonically. Fall back to the surface text.
		o.text(st.surface.String())
		return
	}
	o.anchors = append(o.anchors, Record{
		Start:     sp.Start,
		End:       sp.End,
		Href:      st.href,
		Canonical: st.canonical,
		Surface:   st.surface.String(),
	})
	o.buf.WriteString(st.canonical)
	o.runes = sp.End
}

// Resolve rewrites markup, replacing each resolvable anchor by its canonical
// title and dropping all other tags. Anchors without an href, with an href the
// dictionary does not know, without text, or interrupted by another tag are
// emitted as their plain text.
func (r *Resolver) Resolve(markup string) Result {
	out := &output{r: r}
	st := &state{}
	z := html.NewTokenizer(strings.NewReader(markup))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			st = r.onText(st, string(z.Text()), out)
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			st = r.onStart(st, string(name), hasAttr, z, out)
		case html.EndTagToken:
			name, _ := z.TagName()
			st = r.onEnd(st, string(name), out)
		case html.SelfClosingTagToken:
			st = reset(st, out)
		}
	}
	reset(st, out)

	return Result{Text: out.buf.String(), Spans: out.spans, Anchors: out.anchors}
}

func (r *Resolver) onText(st *state, data string, out *output) *state {
	if st.kind == insideResolvable {
		st.surface.WriteString(data)
		st.hasSurface = true
		return st
	}
	out.text(data)
	return st
}

func (r *Resolver) onStart(st *state, name string, hasAttr bool, z *html.Tokenizer, out *output) *state {
	st = reset(st, out)
	if name != "a" {
		return st
	}
	href, ok := hrefAttr(z, hasAttr)
	if !ok || href == "" {
		return &state{kind: insideUnresolvable}
	}
	href = decodeHref(href)
	canonical, ok := r.dict.Lookup(href)
	if !ok || canonical == "" {
		return &state{kind: insideUnresolvable}
	}
	return &state{kind: insideResolvable, href: href, canonical: canonical}
}

func (r *Resolver) onEnd(st *state, name string, out *output) *state {
	if name == "a" && st.kind == insideResolvable && st.hasSurface {
		out.canonical(st)
		return &state{}
	}
	return reset(st, out)
}

// reset leaves any anchor in progress. A resolvable anchor that is abandoned
// gives its buffered surface back to the output unchanged.
func reset(st *state, out *output) *state {
	if st.kind == insideResolvable && st.hasSurface {
		out.text(st.surface.String())
	}
	if st.kind == outside {
		return st
	}
	return &state{}
}

func hrefAttr(z *html.Tokenizer, hasAttr bool) (string, bool) {
	var (
		href  string
		found bool
	)
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "href" {
			href = string(val)
			found = true
		}
	}
	return href, found
}

// decodeHref undoes percent-encoding, keeping the raw value when it is not
// valid percent-encoding.
func decodeHref(href string) string {
	decoded, err := url.PathUnescape(href)
	if err != nil {
		return href
	}
	return decoded
}
