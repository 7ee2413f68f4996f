package corpus

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/jonathan/jawiki-corpus/internal/schemas"
)

// Manifest describes one corpus build. It is written next to the corpus.
type Manifest struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Version    string    `json:"version,omitempty"`
	InputDir   string    `json:"input_dir"`
	Output     string    `json:"output"`
	Compressed bool      `json:"compressed"`
	Size       int64     `json:"size"`
	BLAKE3     string    `json:"blake3"`
	Analyzer   string    `json:"analyzer"`
	Dictionary string    `json:"dictionary,omitempty"`
	BaseForm   bool      `json:"base_form"`
	Titles     int       `json:"titles"`
	Stats      Stats     `json:"stats"`
}

// ManifestPath returns where the manifest of the corpus at output lives.
func ManifestPath(output string) string {
	return output + ".manifest.json"
}

// WriteManifest stores m as indented JSON.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &BuildError{Message: "failed to encode manifest", Cause: err}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &BuildError{Message: "failed to write manifest", Cause: err}
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest and checks it
// against the embedded manifest schema.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, &BuildError{Message: "failed to read manifest", Cause: err}
	}
	if err := schemas.Validate(schemas.Manifest, data); err != nil {
		return m, &BuildError{Message: "invalid manifest " + path, Cause: err}
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, &BuildError{Message: "failed to decode manifest", Cause: err}
	}
	return m, nil
}

// Compressed reports whether output is written xz-compressed.
func Compressed(output string) bool {
	return strings.HasSuffix(output, ".xz")
}

// Assemble concatenates parts, in order, into output. The file is written
// through a temporary file and renamed into place; when output ends in .xz
// the stream is xz-compressed. It returns the BLAKE3 digest and size of the
// written file.
func Assemble(parts []string, output string) (string, int64, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", 0, &BuildError{Message: "failed to create output directory", Cause: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*")
	if err != nil {
		return "", 0, &BuildError{Message: "failed to create temp output", Cause: err}
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	hasher := blake3.New()
	counter := &countingWriter{}
	sink := io.MultiWriter(tmp, hasher, counter)

	var w io.Writer = sink
	var xw *xz.Writer
	if Compressed(output) {
		xw, err = xz.NewWriter(sink)
		if err != nil {
			return "", 0, &BuildError{Message: "failed to create xz writer", Cause: err}
		}
		w = xw
	}

	for _, part := range parts {
		if err := appendFile(w, part); err != nil {
			return "", 0, err
		}
	}
	if xw != nil {
		if err := xw.Close(); err != nil {
			return "", 0, &BuildError{Message: "failed to finish xz stream", Cause: err}
		}
	}
	if err := tmp.Close(); err != nil {
		return "", 0, &BuildError{Message: "failed to close temp output", Cause: err}
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return "", 0, &BuildError{Message: "failed to move corpus into place", Cause: err}
	}
	return hex.EncodeToString(hasher.Sum(nil)), counter.n, nil
}

func appendFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &BuildError{Message: fmt.Sprintf("failed to open part %s", path), Cause: err}
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return &BuildError{Message: fmt.Sprintf("failed to copy part %s", path), Cause: err}
	}
	return nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// Digest returns the BLAKE3 digest of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// OpenCorpus opens a corpus for reading, decompressing it when needed.
func OpenCorpus(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !Compressed(path) {
		return f, nil
	}
	xr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open xz stream: %w", err)
	}
	return &xzReadCloser{Reader: xr, f: f}, nil
}

type xzReadCloser struct {
	*xz.Reader
	f *os.File
}

func (r *xzReadCloser) Close() error {
	return r.f.Close()
}
