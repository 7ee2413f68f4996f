// Package toolchain drives the external programs of the corpus pipeline:
// wikiextractor turns a dump into JSON lines and fastText trains vectors.
package toolchain

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
)

// maxLogOutput caps how much of a tool's output is kept on failure.
const maxLogOutput = 4096

func lookPath(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", &ToolError{
			Tool:    tool,
			Message: "not found in PATH",
			Cause:   err,
		}
	}
	return path, nil
}

// run executes the tool and returns its combined output. Output lines are
// echoed to logger at debug level once the tool exits.
func run(ctx context.Context, logger *slog.Logger, tool string, args ...string) (string, error) {
	path, err := lookPath(tool)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Info("running", "tool", tool, "args", strings.Join(args, " "))
	runErr := cmd.Run()
	logOutput := tail(out.String(), maxLogOutput)
	for _, line := range strings.Split(strings.TrimSpace(logOutput), "\n") {
		if line != "" {
			logger.Debug(line, "tool", tool)
		}
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = errors.Join(ctxErr, runErr)
		}
		return logOutput, &ToolError{
			Tool:      tool,
			Message:   "command failed",
			LogOutput: logOutput,
			Cause:     runErr,
		}
	}
	return logOutput, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
