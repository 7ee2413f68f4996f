package morph

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Base form column in the feature list of the supported dictionaries.
const (
	ipaBaseColumn   = 6
	jumanBaseColumn = 4
)

// installed maps dictionary names to the directories mecab-config may hold
// them under, in order of preference.
var installed = map[string][]string{
	"ipa":     {"ipadic-utf8", "ipadic"},
	"juman":   {"juman-utf8", "jumandic"},
	"neologd": {"mecab-ipadic-neologd"},
}

// MeCabOptions configures StartMeCab.
type MeCabOptions struct {
	// Path of the mecab executable; looked up in PATH when empty.
	Path string
	// Dictionary is "ipa", "juman", "neologd" or a dictionary directory
	// (assumed to be IPA based).
	Dictionary string
}

// MeCab drives a long-running mecab process, one sentence per request.
type MeCab struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	stderr  *bytes.Buffer
	baseCol int
}

// StartMeCab launches mecab with the requested dictionary.
func StartMeCab(opts MeCabOptions) (*MeCab, error) {
	bin := opts.Path
	if bin == "" {
		bin = "mecab"
	}
	bin, err := exec.LookPath(bin)
	if err != nil {
		return nil, &AnalyzerError{Backend: BackendMeCab, Message: "mecab not found in PATH", Cause: err}
	}

	dicDir, baseCol, err := resolveDictionary(opts.Dictionary)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	args := []string{}
	if dicDir != "" {
		args = append(args, "-d", dicDir)
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, &AnalyzerError{Backend: BackendMeCab, Message: "failed to open stdin", Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &AnalyzerError{Backend: BackendMeCab, Message: "failed to open stdout", Cause: err}
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &AnalyzerError{Backend: BackendMeCab, Message: "failed to start", Cause: err}
	}
	return &MeCab{
		cmd:     cmd,
		cancel:  cancel,
		stdin:   stdin,
		stdout:  bufio.NewReaderSize(stdout, 64*1024),
		stderr:  stderr,
		baseCol: baseCol,
	}, nil
}

// resolveDictionary returns the -d argument and the base form column for a
// dictionary name or directory.
func resolveDictionary(name string) (string, int, error) {
	if name == "" {
		return "", ipaBaseColumn, nil
	}
	if info, err := os.Stat(name); err == nil && info.IsDir() {
		return name, ipaBaseColumn, nil
	}
	candidates, ok := installed[name]
	if !ok {
		return "", 0, &AnalyzerError{Backend: BackendMeCab, Message: "dictionary not found: " + name}
	}

	out, err := exec.Command("mecab-config", "--dicdir").Output()
	if err != nil {
		return "", 0, &AnalyzerError{Backend: BackendMeCab, Message: "mecab-config not available", Cause: err}
	}
	root := strings.TrimSpace(string(out))
	for _, c := range candidates {
		dir := filepath.Join(root, c)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			col := ipaBaseColumn
			if name == "juman" {
				col = jumanBaseColumn
			}
			return dir, col, nil
		}
	}
	return "", 0, &AnalyzerError{Backend: BackendMeCab, Message: fmt.Sprintf("installed dictionary not found: %s (under %s)", name, root)}
}

// Analyze sends text to mecab and parses the nodes up to EOS.
func (m *MeCab) Analyze(text string) ([]Morpheme, error) {
	// mecab reads one sentence per line.
	line := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, text)
	if _, err := io.WriteString(m.stdin, line+"\n"); err != nil {
		return nil, m.failure("failed to write request", err)
	}

	var nodes []string
	for {
		raw, err := m.stdout.ReadString('\n')
		if err != nil {
			return nil, m.failure("failed to read response", err)
		}
		raw = strings.TrimRight(raw, "\r\n")
		if raw == "EOS" {
			break
		}
		nodes = append(nodes, raw)
	}
	return ParseNodes(line, nodes, m.baseCol), nil
}

func (m *MeCab) failure(msg string, err error) error {
	if s := strings.TrimSpace(m.stderr.String()); s != "" {
		msg += ": " + s
	}
	return &AnalyzerError{Backend: BackendMeCab, Message: msg, Cause: err}
}

// Close stops the mecab process.
func (m *MeCab) Close() error {
	m.stdin.Close()
	err := m.cmd.Wait()
	m.cancel()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return &AnalyzerError{Backend: BackendMeCab, Message: "failed to stop", Cause: err}
	}
	return nil
}

// ParseNodes converts mecab output lines for text into morphemes. Each line is
// "surface<TAB>feature,feature,...". Lines without a tab, or whose surface
// cannot be located in text, are skipped. Whitespace mecab silently dropped
// between nodes is accounted for when computing offsets.
func ParseNodes(text string, nodes []string, baseCol int) []Morpheme {
	runes := []rune(text)
	out := make([]Morpheme, 0, len(nodes))
	pos := 0
	for _, node := range nodes {
		surface, features, ok := strings.Cut(node, "\t")
		if !ok || surface == "" {
			continue
		}
		start := locate(runes, pos, surface)
		if start < 0 {
			continue
		}
		end := start + utf8.RuneCountInString(surface)
		out = append(out, Morpheme{
			Surface:  surface,
			Start:    start,
			End:      end,
			BaseForm: feature(features, baseCol),
		})
		pos = end
	}
	return out
}

// locate returns the rune offset of surface at pos, after skipping whitespace.
func locate(runes []rune, pos int, surface string) int {
	for pos < len(runes) && unicode.IsSpace(runes[pos]) {
		pos++
	}
	i := pos
	for _, r := range surface {
		if i >= len(runes) || runes[i] != r {
			return -1
		}
		i++
	}
	return pos
}

func feature(features string, col int) string {
	fields := strings.Split(strings.TrimSpace(features), ",")
	if col < 0 || col >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[col])
}
