package morph

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorpheme_Lemma(t *testing.T) {
	assert.Equal(t, "導く", Morpheme{Surface: "導い", BaseForm: "導く"}.Lemma())
	assert.Equal(t, "ジオン", Morpheme{Surface: "ジオン", BaseForm: "*"}.Lemma())
	assert.Equal(t, "ルシス", Morpheme{Surface: "ルシス", BaseForm: "UNK"}.Lemma())
	assert.Equal(t, "BASIC", Morpheme{Surface: "BASIC"}.Lemma())
}

func TestParseNodes(t *testing.T) {
	text := "この BASIC 系列では"
	nodes := []string{
		"この\t連体詞,*,*,*,*,*,この,コノ,コノ",
		"BASIC\t名詞,固有名詞,組織,*,*,*,*",
		"系列\t名詞,一般,*,*,*,*,系列,ケイレツ,ケイレツ",
		"で\t助詞,格助詞,一般,*,*,*,で,デ,デ",
		"は\t助詞,係助詞,*,*,*,*,は,ハ,ワ",
	}

	got := ParseNodes(text, nodes, ipaBaseColumn)

	require.Len(t, got, 5)
	assert.Equal(t, Morpheme{Surface: "この", Start: 0, End: 2, BaseForm: "この"}, got[0])
	assert.Equal(t, Morpheme{Surface: "BASIC", Start: 3, End: 8, BaseForm: "*"}, got[1])
	assert.Equal(t, Morpheme{Surface: "系列", Start: 9, End: 11, BaseForm: "系列"}, got[2])
	assert.Equal(t, 12, got[4].Start)
}

func TestParseNodes_SkipsMalformed(t *testing.T) {
	text := "導いた"
	nodes := []string{
		"broken line without tab",
		"導い\t動詞,自立,*,*,五段・カ行イ音便,連用タ接続,導く,ミチビイ,ミチビイ",
		"XYZ\t名詞,*",
		"た\t助動詞",
	}

	got := ParseNodes(text, nodes, ipaBaseColumn)

	require.Len(t, got, 2)
	assert.Equal(t, Morpheme{Surface: "導い", Start: 0, End: 2, BaseForm: "導く"}, got[0])
	assert.Equal(t, Morpheme{Surface: "た", Start: 2, End: 3}, got[1], "short feature list has no base form")
}

func TestParseNodes_JumanColumn(t *testing.T) {
	got := ParseNodes("走った", []string{
		"走った\t動詞,*,子音動詞ラ行,タ形,走る,はしった,代表表記:走る/はしる",
	}, jumanBaseColumn)

	require.Len(t, got, 1)
	assert.Equal(t, "走る", got[0].BaseForm)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(Options{Backend: "chasen"})

	var aerr *AnalyzerError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "chasen", aerr.Backend)
}

func TestNewKagome_UnknownDictionary(t *testing.T) {
	_, err := NewKagome("hogehoge")
	assert.Error(t, err)
}

func TestResolveDictionary_Directory(t *testing.T) {
	dir := t.TempDir()
	got, col, err := resolveDictionary(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.Equal(t, ipaBaseColumn, col)

	_, _, err = resolveDictionary("hogehoge")
	assert.Error(t, err)
}

func TestKagome_Offsets(t *testing.T) {
	k, err := NewKagome("ipa")
	require.NoError(t, err)
	defer k.Close()

	text := "この BASIC 系列では文字列として使用される。"
	got, err := k.Analyze(text)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	runes := []rune(text)
	var rebuilt strings.Builder
	prevEnd := 0
	for _, m := range got {
		assert.Equal(t, m.Surface, string(runes[m.Start:m.End]))
		assert.Equal(t, utf8.RuneCountInString(m.Surface), m.End-m.Start)
		assert.GreaterOrEqual(t, m.Start, prevEnd)
		rebuilt.WriteString(strings.Repeat(" ", m.Start-prevEnd))
		rebuilt.WriteString(m.Surface)
		prevEnd = m.End
	}
	assert.Equal(t, strings.TrimRight(text, " "), rebuilt.String())
}

func TestKagome_BaseForm(t *testing.T) {
	k, err := NewKagome("")
	require.NoError(t, err)

	got, err := k.Analyze("勝利へ導いた")
	require.NoError(t, err)

	var lemmas []string
	for _, m := range got {
		lemmas = append(lemmas, m.Lemma())
	}
	assert.Contains(t, lemmas, "導く")
}
