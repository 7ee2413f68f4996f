package substitute

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jawiki-corpus/internal/spans"
	"github.com/jonathan/jawiki-corpus/internal/titles"
)

var testDict = titles.Dictionary{
	"エイブラハム・リンカーン (人名)": "エイブラハム・リンカーン",
	"エイブラハム・エイブ・リンカーン": "エイブラハム・リンカーン",
	"カジキマグロ":            "カジキクロマグロ",
	"ホゲ":                "ホゲ",
}

const (
	elected  = "エイブラハム・リンカーンは大統領に当選した。"
	murdered = "エイブラハム・エイブ・リンカーンは初めて暗殺された。"
)

// protect builds a set of spans over text at the given rune ranges.
func protect(t *testing.T, text string, ranges ...[2]int) spans.Set {
	t.Helper()
	runes := []rune(text)
	var set spans.Set
	for _, r := range ranges {
		require.True(t, set.InsertIfNonOverlapping(spans.New(r[0], string(runes[r[0]:r[1]]))))
	}
	return set
}

func ranges(set spans.Set) [][2]int {
	var out [][2]int
	for _, sp := range set.Spans() {
		out = append(out, [2]int{sp.Start, sp.End})
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		protected  [][2]int
		wantText   string
		wantRanges [][2]int
	}{
		{
			name:      "repeated title between protected spans",
			text:      elected + murdered + murdered + murdered + elected,
			protected: [][2]int{{0, 12}, {100, 112}},
			wantText: elected +
				"エイブラハム・リンカーンは初めて暗殺された。" +
				"エイブラハム・リンカーンは初めて暗殺された。" +
				"エイブラハム・リンカーンは初めて暗殺された。" +
				elected,
			wantRanges: [][2]int{{0, 12}, {22, 34}, {44, 56}, {66, 78}, {88, 100}},
		},
		{
			name:       "lengthening title",
			text:       "カジキマグロを海で釣る海で釣るカジキマグロ",
			wantText:   "カジキクロマグロを海で釣る海で釣るカジキクロマグロ",
			wantRanges: [][2]int{{0, 8}, {17, 25}},
		},
		{
			name:       "protected span overlaps title start",
			text:       "私はカジキマグロを海で釣る",
			protected:  [][2]int{{1, 5}},
			wantText:   "私はカジキマグロを海で釣る",
			wantRanges: [][2]int{{1, 5}},
		},
		{
			name:       "protected span overlaps title end",
			text:       "私はカジキマグロを海で釣る",
			protected:  [][2]int{{5, 9}},
			wantText:   "私はカジキマグロを海で釣る",
			wantRanges: [][2]int{{5, 9}},
		},
		{
			name:       "protected span contains title",
			text:       "私はカジキマグロを海で釣る",
			protected:  [][2]int{{1, 9}},
			wantText:   "私はカジキマグロを海で釣る",
			wantRanges: [][2]int{{1, 9}},
		},
		{
			name:       "title contains protected span",
			text:       "私はカジキマグロを海で釣る",
			protected:  [][2]int{{3, 7}},
			wantText:   "私はカジキマグロを海で釣る",
			wantRanges: [][2]int{{3, 7}},
		},
		{
			name:       "protected span touching title",
			text:       "私はカジキマグロを海で釣る",
			protected:  [][2]int{{0, 2}, {8, 9}},
			wantText:   "私はカジキクロマグロを海で釣る",
			wantRanges: [][2]int{{0, 2}, {2, 10}, {10, 11}},
		},
		{
			name:       "short titles are left alone",
			text:       "ホゲホゲ",
			wantText:   "ホゲホゲ",
			wantRanges: nil,
		},
		{
			name:       "no titles present",
			text:       "今日は晴れです。",
			wantText:   "今日は晴れです。",
			wantRanges: nil,
		},
	}

	e := NewEngine(testDict, DefaultMinTitleLen)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := protect(t, tt.text, tt.protected...)

			gotText, gotSet := e.Apply(tt.text, in)

			assert.Equal(t, tt.wantText, gotText)
			assert.Equal(t, tt.wantRanges, ranges(gotSet))
			assertSpansMatchText(t, gotText, gotSet)
			assert.Equal(t, tt.protected, nilIfEmpty(ranges(in)), "input set must not change")
		})
	}
}

func nilIfEmpty(r [][2]int) [][2]int {
	if len(r) == 0 {
		return nil
	}
	return r
}

func TestNewEngine_Exclusions(t *testing.T) {
	e := NewEngine(titles.Dictionary{
		"スズキ (会社)": "スズキ",
		"C++言語":    "C++言語",
		"なぜ?":      "なぜ?",
		"やった!":     "やった!",
		`バック\スラッシュ`: `バック\スラッシュ`,
		"*印":       "*印",
		"ホゲ":       "ホゲ",
		"マグロ":      "マグロ",
		"空見出し":     "",
	}, 0)

	assert.Equal(t, 1, e.Len())
	text, set := e.Apply("C++言語でマグロを焼く", spans.Set{})
	assert.Equal(t, "C++言語でマグロを焼く", text)
	assert.Equal(t, [][2]int{{6, 9}}, ranges(set))
}

func TestApply_PrefersLongerTitles(t *testing.T) {
	e := NewEngine(titles.Dictionary{
		"マグロ":    "鮪",
		"クロマグロ":  "黒鮪",
		"マグロ漁船": "鮪漁船",
	}, 0)

	text, set := e.Apply("クロマグロとマグロ漁船とマグロ", spans.Set{})

	assert.Equal(t, "黒鮪と鮪漁船と鮪", text)
	assert.Equal(t, [][2]int{{0, 2}, {3, 6}, {7, 8}}, ranges(set))
	assertSpansMatchText(t, text, set)
}

func TestApply_CanonicalEqualToRawStillProtects(t *testing.T) {
	e := NewEngine(titles.Dictionary{"マグロ": "マグロ"}, 0)
	text, set := e.Apply("マグロとマグロ", spans.Set{})
	assert.Equal(t, "マグロとマグロ", text)
	assert.Equal(t, [][2]int{{0, 3}, {4, 7}}, ranges(set))
}

func TestApply_TieOrderDoesNotMatter(t *testing.T) {
	// Equal-length titles that never compete for the same text.
	dict := titles.Dictionary{
		"アイウ": "あいう",
		"カキク": "かきくけこ",
		"サシス": "さ",
	}
	text := "アイウとカキクとサシスとアイウ"

	base := NewEngine(dict, 0)
	wantText, wantSet := base.Apply(text, spans.Set{})

	// Re-run with every permutation of the tied titles.
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		e := &Engine{titles: make([]title, len(base.titles)), index: make(map[prefix][]int)}
		for to, from := range p {
			e.titles[to] = base.titles[from]
			pre := prefixOf(base.titles[from].raw)
			e.index[pre] = append(e.index[pre], to)
		}

		gotText, gotSet := e.Apply(text, spans.Set{})
		assert.Equal(t, wantText, gotText)
		assert.Equal(t, ranges(wantSet), ranges(gotSet))
	}
	assert.Equal(t, "あいうとかきくけことさとあいう", wantText)
}

func TestApply_TitleWithSentencePeriod(t *testing.T) {
	e := NewEngine(titles.Dictionary{"モーニング娘。": "モーニング娘。"}, 0)
	text, set := e.Apply("モーニング娘。は歌手グループ。", spans.Set{})
	assert.Equal(t, "モーニング娘。は歌手グループ。", text)
	assert.True(t, set.Covers(6))
}

func TestApply_MatchesExhaustiveSearch(t *testing.T) {
	dict := titles.Dictionary{
		"東京都":     "東京都",
		"東京都庁":    "都庁",
		"京都府":     "京都府",
		"都庁舎":     "都庁舎",
		"大阪府立大学":  "大阪府立大学",
		"大阪府":     "大阪",
		"立大学の研究所": "研究所",
	}
	text := strings.Repeat("東京都庁舎と京都府と大阪府立大学の研究所。", 3)
	e := NewEngine(dict, 0)

	gotText, gotSet := e.Apply(text, spans.Set{})

	// Try every title instead of only the indexed candidates.
	wantText := text
	wantSet := spans.Set{}
	for _, tt := range e.titles {
		wantText = e.substitute(wantText, &wantSet, tt)
	}
	assert.Equal(t, wantText, gotText)
	assert.Equal(t, ranges(wantSet), ranges(gotSet))
	assertSpansMatchText(t, gotText, gotSet)
}

func assertSpansMatchText(t *testing.T, text string, set spans.Set) {
	t.Helper()
	runes := []rune(text)
	prevEnd := 0
	for _, sp := range set.Spans() {
		require.GreaterOrEqual(t, sp.Start, prevEnd, "spans must not overlap")
		require.LessOrEqual(t, sp.End, len(runes))
		assert.Equal(t, sp.Text, string(runes[sp.Start:sp.End]))
		assert.Equal(t, sp.Len(), utf8.RuneCountInString(sp.Text))
		prevEnd = sp.End
	}
}
