package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jawiki-corpus/internal/titles"
)

func TestRunStatusConstants(t *testing.T) {
	assert.Equal(t, "running", RunStatusRunning)
	assert.Equal(t, "completed", RunStatusCompleted)
	assert.Equal(t, "failed", RunStatusFailed)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS corpus_runs")
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS titles")
}

func TestTitleRows(t *testing.T) {
	rows := titleRows("20240101", titles.Dictionary{
		"マグロ":      "マグロ",
		"スズキ (会社)": "スズキ",
	})

	assert.Equal(t, [][]any{
		{"20240101", "スズキ (会社)", "スズキ"},
		{"20240101", "マグロ", "マグロ"},
	}, rows)
}

func TestTitleRows_Empty(t *testing.T) {
	assert.Empty(t, titleRows("20240101", nil))
}
