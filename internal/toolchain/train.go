package toolchain

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jonathan/jawiki-corpus/internal/corpus"
)

// TrainOptions configures Train.
type TrainOptions struct {
	// Tool is the fasttext executable; "fasttext" when empty.
	Tool string
	// Input is the corpus. An xz-compressed corpus is decompressed to a
	// temporary file first.
	Input string
	// Output is the model prefix; fasttext writes Output.bin and Output.vec.
	Output   string
	Model    string
	Dim      int
	Epoch    int
	MinCount int
	Threads  int
	Logger   *slog.Logger
}

// Train runs fasttext on a corpus. It does nothing and returns false when
// the model binary already exists.
func Train(ctx context.Context, opts TrainOptions) (bool, error) {
	if opts.Tool == "" {
		opts.Tool = "fasttext"
	}
	if opts.Model == "" {
		opts.Model = "skipgram"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bin := opts.Output + ".bin"
	if _, err := os.Stat(bin); err == nil {
		logger.Info("model exists, skipping", "model", bin)
		return false, nil
	}
	switch opts.Model {
	case "skipgram", "cbow":
	default:
		return false, &ToolError{Tool: opts.Tool, Message: "unknown model " + strconv.Quote(opts.Model)}
	}

	input := opts.Input
	if corpus.Compressed(input) {
		plain, err := decompress(input, filepath.Dir(opts.Output))
		if err != nil {
			return false, err
		}
		defer os.Remove(plain)
		input = plain
	}

	args := []string{opts.Model, "-input", input, "-output", opts.Output}
	args = appendInt(args, "-dim", opts.Dim)
	args = appendInt(args, "-epoch", opts.Epoch)
	args = appendInt(args, "-minCount", opts.MinCount)
	args = appendInt(args, "-thread", opts.Threads)

	if _, err := run(ctx, logger, opts.Tool, args...); err != nil {
		_ = os.Remove(bin)
		_ = os.Remove(opts.Output + ".vec")
		return false, err
	}
	return true, nil
}

func appendInt(args []string, flag string, v int) []string {
	if v <= 0 {
		return args
	}
	return append(args, flag, strconv.Itoa(v))
}

func decompress(path, dir string) (string, error) {
	rc, err := corpus.OpenCorpus(path)
	if err != nil {
		return "", &ToolError{Tool: "xz", Message: "failed to open corpus", Cause: err}
	}
	defer rc.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &ToolError{Tool: "xz", Message: "failed to create model directory", Cause: err}
	}
	tmp, err := os.CreateTemp(dir, ".corpus-*.txt")
	if err != nil {
		return "", &ToolError{Tool: "xz", Message: "failed to create temp corpus", Cause: err}
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &ToolError{Tool: "xz", Message: "failed to decompress corpus", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", &ToolError{Tool: "xz", Message: "failed to write temp corpus", Cause: err}
	}
	return tmp.Name(), nil
}
