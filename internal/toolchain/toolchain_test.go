package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jawiki-corpus/internal/corpus"
	"github.com/jonathan/jawiki-corpus/internal/logging"
)

// script writes an executable shell script that records its arguments in
// <dir>/args before running body. $out holds the value of the flag named by
// outFlag.
func script(t *testing.T, outFlag, body string) (tool, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	tool = filepath.Join(dir, "tool")
	argsFile = filepath.Join(dir, "args")
	src := `#!/bin/sh
echo "$@" > "` + argsFile + `"
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "` + outFlag + `" ]; then out="$2"; fi
  if [ "$1" = "-input" ]; then in="$2"; fi
  shift
done
` + body + "\n"
	require.NoError(t, os.WriteFile(tool, []byte(src), 0o755))
	return tool, argsFile
}

func readArgs(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func writeDump(t *testing.T) string {
	t.Helper()
	dump := filepath.Join(t.TempDir(), "jawiki-20240101-pages-articles-multistream.xml.bz2")
	require.NoError(t, os.WriteFile(dump, []byte("BZh"), 0o644))
	return dump
}

func TestExtract(t *testing.T) {
	tool, args := script(t, "--output", `mkdir -p "$out/AA" && echo '{"title":"x","text":"y"}' > "$out/AA/wiki_00"`)
	dump := writeDump(t)
	out := filepath.Join(t.TempDir(), "jawiki_20240101")

	ran, err := Extract(context.Background(), ExtractOptions{Tool: tool, Dump: dump, Output: out, Processes: 3, Logger: logging.Discard()})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, dump+" --json --links --quiet --output "+out+" --processes 3", readArgs(t, args))
	assert.FileExists(t, filepath.Join(out, "AA", "wiki_00"))
}

func TestExtract_SkipsExistingOutput(t *testing.T) {
	tool, args := script(t, "--output", "exit 1")
	out := t.TempDir()

	ran, err := Extract(context.Background(), ExtractOptions{Tool: tool, Dump: "missing", Output: out, Logger: logging.Discard()})

	require.NoError(t, err)
	assert.False(t, ran)
	assert.NoFileExists(t, args)
}

func TestExtract_FailureRemovesPartialOutput(t *testing.T) {
	tool, _ := script(t, "--output", `mkdir -p "$out/AA"; echo "bz2 stream broken" >&2; exit 3`)
	out := filepath.Join(t.TempDir(), "jawiki_20240101")

	_, err := Extract(context.Background(), ExtractOptions{Tool: tool, Dump: writeDump(t), Output: out, Logger: logging.Discard()})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Contains(t, toolErr.LogOutput, "bz2 stream broken")
	assert.NoDirExists(t, out)
}

func TestExtract_MissingTool(t *testing.T) {
	_, err := Extract(context.Background(), ExtractOptions{
		Tool:   "wikiextractor-does-not-exist",
		Dump:   writeDump(t),
		Output: filepath.Join(t.TempDir(), "out"),
		Logger: logging.Discard(),
	})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Contains(t, err.Error(), "not found in PATH")
}

func TestExtract_MissingDump(t *testing.T) {
	_, err := Extract(context.Background(), ExtractOptions{
		Dump:   filepath.Join(t.TempDir(), "nope.bz2"),
		Output: filepath.Join(t.TempDir(), "out"),
		Logger: logging.Discard(),
	})

	assert.ErrorIs(t, err, os.ErrNotExist)
}

const fakeFastText = `cp "$in" "$out.vec" && touch "$out.bin"`

func TestTrain(t *testing.T) {
	tool, args := script(t, "-output", fakeFastText)
	dir := t.TempDir()
	input := filepath.Join(dir, "jawiki_20240101.txt")
	require.NoError(t, os.WriteFile(input, []byte("一 行 目\n"), 0o644))
	prefix := filepath.Join(dir, "fasttext_jawiki_20240101")

	ran, err := Train(context.Background(), TrainOptions{
		Tool:     tool,
		Input:    input,
		Output:   prefix,
		Model:    "cbow",
		Dim:      100,
		Epoch:    5,
		MinCount: 2,
		Logger:   logging.Discard(),
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "cbow -input "+input+" -output "+prefix+" -dim 100 -epoch 5 -minCount 2", readArgs(t, args))
	assert.FileExists(t, prefix+".bin")
}

func TestTrain_CompressedInput(t *testing.T) {
	tool, _ := script(t, "-output", fakeFastText)
	dir := t.TempDir()
	part := filepath.Join(dir, "part")
	require.NoError(t, os.WriteFile(part, []byte("一 行 目\n二 行 目\n"), 0o644))
	input := filepath.Join(dir, "jawiki_20240101.txt.xz")
	_, _, err := corpus.Assemble([]string{part}, input)
	require.NoError(t, err)
	prefix := filepath.Join(dir, "model")

	_, err = Train(context.Background(), TrainOptions{Tool: tool, Input: input, Output: prefix, Logger: logging.Discard()})

	require.NoError(t, err)
	vec, err := os.ReadFile(prefix + ".vec")
	require.NoError(t, err)
	assert.Equal(t, "一 行 目\n二 行 目\n", string(vec), "fasttext sees the plain corpus")

	matches, err := filepath.Glob(filepath.Join(dir, ".corpus-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary plain corpus is removed")
}

func TestTrain_SkipsExistingModel(t *testing.T) {
	tool, args := script(t, "-output", "exit 1")
	prefix := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.WriteFile(prefix+".bin", nil, 0o644))

	ran, err := Train(context.Background(), TrainOptions{Tool: tool, Output: prefix, Logger: logging.Discard()})

	require.NoError(t, err)
	assert.False(t, ran)
	assert.NoFileExists(t, args)
}

func TestTrain_FailureRemovesPartialModel(t *testing.T) {
	tool, _ := script(t, "-output", `touch "$out.bin"; exit 1`)
	dir := t.TempDir()
	input := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(input, []byte("x\n"), 0o644))
	prefix := filepath.Join(dir, "model")

	_, err := Train(context.Background(), TrainOptions{Tool: tool, Input: input, Output: prefix, Logger: logging.Discard()})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.NoFileExists(t, prefix+".bin")
}

func TestTrain_UnknownModel(t *testing.T) {
	_, err := Train(context.Background(), TrainOptions{Output: filepath.Join(t.TempDir(), "m"), Model: "glove", Logger: logging.Discard()})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 10))
	assert.Equal(t, "c\n", tail("aaaa\nbbbb\nc\n", 4))
}
