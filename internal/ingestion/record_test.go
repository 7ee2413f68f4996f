package ingestion

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecords(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"1","title":"スズキ (会社)","text":"本文"}`,
		``,
		`{not json`,
		`"hoge"`,
		`{"id":"2","title":"マグロ"}`,
	}, "\n")

	var got []Record
	stats, err := ReadRecords(strings.NewReader(input), func(r Record) error {
		got = append(got, r)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, ReadStats{Lines: 5, Records: 2, Malformed: 2}, stats)
	require.Len(t, got, 2)
	assert.Equal(t, "スズキ (会社)", got[0].Title)
	assert.Equal(t, "本文", got[0].Text)
	assert.Equal(t, "", got[1].Text)
}

func TestReadRecords_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	input := "{\"title\":\"a\"}\n{\"title\":\"b\"}\n"

	calls := 0
	_, err := ReadRecords(strings.NewReader(input), func(Record) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadRecords_ReaderFailure(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := ReadRecords(iotest.ErrReader(boom), func(Record) error { return nil })

	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	assert.ErrorIs(t, err, boom)
}

func TestReadRecords_OversizedLineSkipped(t *testing.T) {
	huge := `{"title":"巨大","text":"` + strings.Repeat("あ", 6*1024*1024) + `"}`
	input := huge + "\n" + `{"title":"マグロ","text":"本文"}` + "\n"

	var got []Record
	stats, err := ReadRecords(strings.NewReader(input), func(r Record) error {
		got = append(got, r)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, ReadStats{Lines: 2, Records: 1, Malformed: 1}, stats)
	require.Len(t, got, 1)
	assert.Equal(t, "マグロ", got[0].Title)
}

func TestReadRecords_LineLimit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ReadStats
		names []string
	}{
		{
			name:  "long line between records",
			input: `{"title":"a"}` + "\n" + `{"title":"` + strings.Repeat("x", 200) + `"}` + "\n" + `{"title":"b"}`,
			want:  ReadStats{Lines: 3, Records: 2, Malformed: 1},
			names: []string{"a", "b"},
		},
		{
			name:  "long line beyond the read buffer",
			input: `{"title":"` + strings.Repeat("x", 200*1024) + `"}` + "\n" + `{"title":"b"}` + "\n",
			want:  ReadStats{Lines: 2, Records: 1, Malformed: 1},
			names: []string{"b"},
		},
		{
			name:  "long last line without newline",
			input: `{"title":"a"}` + "\n" + strings.Repeat("y", 100),
			want:  ReadStats{Lines: 2, Records: 1, Malformed: 1},
			names: []string{"a"},
		},
		{
			name:  "line at the limit",
			input: `{"title":"` + strings.Repeat("z", 50) + `"}`,
			want:  ReadStats{Lines: 1, Records: 1},
			names: []string{strings.Repeat("z", 50)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			stats, err := readRecords(strings.NewReader(tt.input), 64, func(r Record) error {
				names = append(names, r.Title)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats)
			assert.Equal(t, tt.names, names)
		})
	}
}
