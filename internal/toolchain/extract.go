package toolchain

import (
	"context"
	"log/slog"
	"os"
	"strconv"
)

// ExtractOptions configures Extract.
type ExtractOptions struct {
	// Tool is the wikiextractor executable; "wikiextractor" when empty.
	Tool      string
	Dump      string
	Output    string
	Processes int
	Logger    *slog.Logger
}

// Extract runs wikiextractor on a dump, writing JSON lines with links kept
// as anchors under opts.Output. It does nothing and returns false when the
// output directory already exists. A failed or cancelled run leaves no
// output directory behind.
func Extract(ctx context.Context, opts ExtractOptions) (bool, error) {
	if opts.Tool == "" {
		opts.Tool = "wikiextractor"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if info, err := os.Stat(opts.Output); err == nil && info.IsDir() {
		logger.Info("already extracted, skipping", "output", opts.Output)
		return false, nil
	}
	if _, err := os.Stat(opts.Dump); err != nil {
		return false, &ToolError{Tool: opts.Tool, Message: "dump not found", Cause: err}
	}

	args := []string{opts.Dump, "--json", "--links", "--quiet", "--output", opts.Output}
	if opts.Processes > 0 {
		args = append(args, "--processes", strconv.Itoa(opts.Processes))
	}
	if _, err := run(ctx, logger, opts.Tool, args...); err != nil {
		_ = os.RemoveAll(opts.Output)
		return false, err
	}
	if _, err := os.Stat(opts.Output); err != nil {
		return false, &ToolError{Tool: opts.Tool, Message: "no output directory was produced", Cause: err}
	}
	return true, nil
}
