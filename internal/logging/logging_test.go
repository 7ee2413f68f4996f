package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON, false)

	logger.Debug("hidden")
	logger.Info("corpus written", "sentences", 12)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corpus written", entry["msg"])
	assert.Equal(t, float64(12), entry["sentences"])

	ts, ok := entry["time"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestNew_VerboseText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatText, true)

	logger.Debug("file done", "input", "AA/wiki_00")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "input=AA/wiki_00")
}

func TestInit_SetsDefault(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	var buf bytes.Buffer
	logger := Init(&buf, FormatText, false)
	slog.Info("via default")

	assert.Same(t, logger, slog.Default())
	assert.Contains(t, buf.String(), "via default")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nothing")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
