package ingestion

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/jonathan/jawiki-corpus/internal/spans"
)

// Defaults for the article and line filters.
const (
	DefaultMinTextLen   = 100 // runes in the raw article body
	DefaultMinLineLen   = 10  // runes in a line or sentence
	DefaultMinTextLines = 3   // valid lines per article
)

// relatedSection is the heading after which an article only lists links.
const relatedSection = "関連項目."

var (
	annotationRegex    = regexp.MustCompile(`\[要[^\[\]]*?\]`)
	questionRegex      = regexp.MustCompile(`\[[^\[\]]*?\?\]`)
	parentheticalRegex = regexp.MustCompile(`\s*\([^()]*\)\s*`)
	emptyBracketRegex  = regexp.MustCompile(`\s*(?:〈〉|『』|\[\])\s*`)
	longVowelRegex     = regexp.MustCompile(`ー+`)
	footnoteRegex      = regexp.MustCompile(`^\[\d+\]`)
)

// charReplacer folds dash and tilde variants the way Japanese corpora
// conventionally do: hyphen-likes become '-', long-vowel-likes become 'ー',
// wave dashes disappear.
var charReplacer = strings.NewReplacer(
	"˗", "-", "֊", "-", "‐", "-", "‑", "-", "‒", "-", "–", "-", "⁃", "-", "⁻", "-", "₋", "-", "−", "-",
	"﹣", "ー", "—", "ー", "―", "ー", "─", "ー", "━", "ー",
	"~", "", "∼", "", "∾", "", "〜", "", "〰", "",
)

// noiseRegexes are applied in order to remove editorial annotations,
// parentheticals and brackets left empty by the extractor. They expect
// fullwidth brackets already folded to ASCII.
var noiseRegexes = []*regexp.Regexp{annotationRegex, questionRegex, parentheticalRegex, emptyBracketRegex}

// CleanText normalizes a chunk of plain article text: NFKC folding, dash and
// tilde unification, removal of parentheticals and editorial annotations,
// and whitespace collapsing. Spaces touching Japanese characters are dropped.
func CleanText(content string) string {
	if content == "" {
		return ""
	}
	content = foldChars(content)
	for _, re := range noiseRegexes {
		content = re.ReplaceAllString(content, "")
	}
	return squeezeSpaces(content)
}

// NormalizeText is CleanText without the bracket and annotation removal. It
// is meant for the text chunks between tags of a line that already went
// through StripLineNoise.
func NormalizeText(content string) string {
	if content == "" {
		return ""
	}
	return squeezeSpaces(foldChars(content))
}

func foldChars(content string) string {
	content = norm.NFKC.String(content)
	content = charReplacer.Replace(content)
	return longVowelRegex.ReplaceAllString(content, "ー")
}

// StripLineNoise removes parentheticals, editorial annotations and empty
// brackets from one line of article markup. Patterns are matched against the
// text outside tags, so a group may enclose a link; tags inside a removed
// group go with it, and parentheses inside tag attributes are never touched.
func StripLineNoise(markup string) string {
	runes := []rune(markup)
	drop := make([]bool, len(runes))
	tag := make([]bool, len(runes))
	for i := 0; i < len(runes); i++ {
		if runes[i] != '<' {
			continue
		}
		j := i + 1
		for j < len(runes) && runes[j] != '>' && runes[j] != '<' {
			j++
		}
		if j < len(runes) && runes[j] == '>' {
			for k := i; k <= j; k++ {
				tag[k] = true
			}
			i = j
		}
	}

	for _, re := range noiseRegexes {
		// view is the remaining text outside tags; pos maps it back to runes.
		var (
			view []rune
			pos  []int
		)
		for i, r := range runes {
			if !drop[i] && !tag[i] {
				view = append(view, foldWidth(r))
				pos = append(pos, i)
			}
		}
		text := string(view)
		matches := re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		runeAt := make([]int, len(text)+1)
		n := 0
		for b := range text {
			runeAt[b] = n
			n++
		}
		runeAt[len(text)] = n
		for _, m := range matches {
			from, to := runeAt[m[0]], runeAt[m[1]]
			if from == to {
				continue
			}
			for k := pos[from]; k <= pos[to-1]; k++ {
				drop[k] = true
			}
		}
	}

	var sb strings.Builder
	sb.Grow(len(markup))
	for i, r := range runes {
		if !drop[i] {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// foldWidth maps a fullwidth character to its narrow form, one rune to one
// rune, so that offsets into the folded view stay valid.
func foldWidth(r rune) rune {
	if p := width.LookupRune(r); p.Kind() == width.EastAsianFullwidth {
		if n := p.Narrow(); n != 0 {
			return n
		}
	}
	if r == '\u3000' {
		return ' '
	}
	return r
}

// squeezeSpaces collapses whitespace runs to one space and removes the space
// entirely when a neighbouring character is Japanese.
func squeezeSpaces(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !unicode.IsSpace(r) {
			sb.WriteRune(r)
			continue
		}
		j := i
		for j+1 < len(runes) && unicode.IsSpace(runes[j+1]) {
			j++
		}
		prevJa := i > 0 && isJapanese(runes[i-1])
		nextJa := j+1 < len(runes) && isJapanese(runes[j+1])
		if !prevJa && !nextJa {
			sb.WriteRune(' ')
		}
		i = j
	}
	return sb.String()
}

func isJapanese(r rune) bool {
	switch {
	case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana):
		return true
	case r >= 0x3000 && r <= 0x303f: // CJK symbols and punctuation
		return true
	case r >= 0xff00 && r <= 0xffef: // halfwidth and fullwidth forms
		return true
	}
	return r == 'ー' || r == '・'
}

// Lines splits an article body into lines, accepting CRLF and CR endings.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// Verdict is the outcome of classifying one article line.
type Verdict int

const (
	// Keep marks a line worth tokenizing.
	Keep Verdict = iota
	// Skip marks a heading, broken, or too short line.
	Skip
	// Stop marks the start of the trailing link section; nothing after it
	// is article prose.
	Stop
)

// Filter holds the thresholds used to accept articles and lines.
type Filter struct {
	MinTextLen   int
	MinLineLen   int
	MinTextLines int
}

// DefaultFilter returns the thresholds used for jawiki.
func DefaultFilter() Filter {
	return Filter{
		MinTextLen:   DefaultMinTextLen,
		MinLineLen:   DefaultMinLineLen,
		MinTextLines: DefaultMinTextLines,
	}
}

// TextLongEnough reports whether a raw article body is worth looking at.
func (f Filter) TextLongEnough(text string) bool {
	return utf8.RuneCountInString(text) >= f.MinTextLen
}

// EnoughLines reports whether an article kept enough lines to be used.
func (f Filter) EnoughLines(n int) bool {
	return n >= f.MinTextLines
}

// Classify decides what to do with one cleaned line.
func (f Filter) Classify(line string) Verdict {
	line = strings.TrimSpace(line)
	switch {
	case line == relatedSection:
		return Stop
	case strings.HasSuffix(line, "."):
		// Section headings come out of the extractor terminated by a period.
		return Skip
	case strings.Contains(line, "「」"):
		// Pronunciation templates that failed to render.
		return Skip
	case utf8.RuneCountInString(line) < f.MinLineLen:
		return Skip
	}
	return Keep
}

// Range is a half-open rune range of a text.
type Range struct {
	Start int
	End   int
}

// SplitSentences cuts text after every '。' that is neither inside a quotation
// (「」 or 『』) nor inside a protected span. Each range is trimmed of
// surrounding whitespace; ranges shorter than f.MinLineLen and footnote lines
// are dropped.
func (f Filter) SplitSentences(text string, protected *spans.Set) []Range {
	runes := []rune(text)
	var (
		out   []Range
		start int
		depth int
	)
	emit := func(end int) {
		r := trimRange(runes, start, end)
		start = end
		if r.End-r.Start < f.MinLineLen {
			return
		}
		if footnoteRegex.MatchString(string(runes[r.Start:r.End])) {
			return
		}
		out = append(out, r)
	}

	for i, r := range runes {
		switch r {
		case '「', '『':
			depth++
		case '」', '』':
			if depth > 0 {
				depth--
			}
		case '。':
			if depth == 0 && (protected == nil || !protected.Covers(i)) {
				emit(i + 1)
			}
		}
	}
	if start < len(runes) {
		emit(len(runes))
	}
	return out
}

func trimRange(runes []rune, start, end int) Range {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return Range{Start: start, End: end}
}
