package titles

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jawiki-corpus/internal/ingestion"
)

const lincolnTitle = "エイブラハム・リンカーン (人名)"

var lincolnText = strings.Join([]string{
	"エイブラハム・リンカーンは、アメリカ合衆国最初の共和党所属の大統領である。",
	"そして、アメリカ合衆国大統領を務めた個々の人物の業績をランクづけするために実施された政治学における調査結果「歴代アメリカ合衆国大統領のランキング」において、しばしば、「もっとも偉大な大統領」の1人に挙げられている。",
	"文章３.",
	"「」",
	"テス",
	"また、1863年11月9日、ゲティスバーグ国立戦没者墓地の開会式において行われた世界的に有名な演説である「ゲティスバーグ演説」において、戦没者を追悼して「人民の人民による人民のための政治を地上から決して絶滅させないために、われわれがここで固く決意することである」という民主主義の基礎を主張したことや、アメリカ合衆国南部における奴隷解放、南北戦争による国家分裂の危機を乗り越えた政治的業績、リーダーシップなどが、歴史的に高く評価されている。",
	"関連項目.",
	"",
}, "\n")

const lincolnShortText = "エイブラハム・リンカーンは、アメリカ合衆国最初の共和党所属の大統領である。" +
	"そして、アメリカ合衆国大統領を務めた個々の人物の業績をランクづけするために実施された" +
	"政治学における調査結果「歴代アメリカ合衆国大統領のランキング」において、" +
	"しばしば、「もっとも偉大な大統領」の1人に挙げられている。"

func TestExtractor_Extract(t *testing.T) {
	x := NewExtractor(ingestion.DefaultFilter())

	got, ok := x.Extract(ingestion.Record{Title: lincolnTitle, Text: lincolnText})

	require.True(t, ok)
	assert.Equal(t, Entry{Raw: lincolnTitle, Normalized: "エイブラハム・リンカーン"}, got)
}

func TestExtractor_Rejects(t *testing.T) {
	tests := []struct {
		name string
		rec  ingestion.Record
	}{
		{"no text", ingestion.Record{Title: "hoge"}},
		{"text too short", ingestion.Record{Title: "hoge", Text: "hoge"}},
		{"no title", ingestion.Record{Text: lincolnText}},
		{"title normalizes to nothing", ingestion.Record{Title: " (人名) ", Text: lincolnText}},
		{"single paragraph", ingestion.Record{Title: lincolnTitle, Text: lincolnShortText}},
	}

	x := NewExtractor(ingestion.DefaultFilter())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := x.Extract(tt.rec)
			assert.False(t, ok)
			assert.Equal(t, Entry{}, got)
		})
	}
}

func TestExtractor_LinesAfterRelatedSectionIgnored(t *testing.T) {
	long := "これは十分な長さを持つ本文の一行であり、数えられるべきである。"
	text := strings.Join([]string{long, long, "関連項目.", long, long}, "\n")
	text += strings.Repeat("あ", 100)

	_, ok := NewExtractor(ingestion.DefaultFilter()).Extract(ingestion.Record{Title: "テスト項目", Text: text})
	assert.False(t, ok)
}

func TestExtractor_AnchorsMeasuredAsText(t *testing.T) {
	// Each line is short once the markup is gone.
	line := `<a href="%E3%83%9E%E3%82%B0%E3%83%AD">マグロ</a>は魚`
	text := strings.Repeat(line+"\n", 10)

	_, ok := NewExtractor(ingestion.DefaultFilter()).Extract(ingestion.Record{Title: "マグロ", Text: text})
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "スズキ", Normalize("スズキ (会社)"))
	assert.Equal(t, "ABC", Normalize("ＡＢＣ"))
	assert.Equal(t, "", Normalize(" (人名) "))
}

func TestDisambiguationRegex_Greedy(t *testing.T) {
	assert.Equal(t, "A ", disambiguationRegex.ReplaceAllString("A (x) B (y)", ""))
	assert.Equal(t, "A", Normalize("A (x (y) z)"))
}

func TestDictionary_AddAndLookup(t *testing.T) {
	d := Dictionary{}
	assert.True(t, d.Add(Entry{Raw: "スズキ (会社)", Normalized: "スズキ"}))
	assert.False(t, d.Add(Entry{Raw: "スズキ (会社)", Normalized: "別物"}), "first entry wins")
	assert.False(t, d.Add(Entry{Raw: "空", Normalized: ""}))

	v, ok := d.Lookup("スズキ (会社)")
	assert.True(t, ok)
	assert.Equal(t, "スズキ", v)

	_, ok = d.Lookup("hogehoge")
	assert.False(t, ok)
}

func TestReadWrite(t *testing.T) {
	dict := Dictionary{
		"スズキ (会社)":          "スズキ",
		"Hello, World":      "Hello, World",
		`引用 "記号" を含む題名`: `引用 "記号" を含む題名`,
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, dict))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, dict, got)
}

func TestWrite_Sorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Dictionary{"b": "B", "a": "A", "c": "C"}))
	assert.Equal(t, "a,A\nb,B\nc,C\n", buf.String())
}

func TestRead_SkipsIncompleteRows(t *testing.T) {
	got, err := Read(strings.NewReader("a,A\nlonely\nb,B,extra\nc,C\n"))
	require.NoError(t, err)
	assert.Equal(t, Dictionary{"a": "A", "c": "C"}, got)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "titles.csv")
	dict := Dictionary{"マグロ": "マグロ", "カジキマグロ": "カジキクロマグロ"}

	require.NoError(t, Save(path, dict))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dict, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))

	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
