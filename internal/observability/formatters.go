// Package observability provides formatted progress and summary output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/jawiki-corpus/internal/corpus"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// barWidth is the width of the progress bar
	barWidth = 30
)

// Printer handles progress and summary output
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	now   func() time.Time
	start time.Time
	stage string
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, now: time.Now}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		// Truncate long lines
		if r := []rune(line); len(r) > boxWidth-4 {
			line = string(r[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// Stage starts a new progress line labelled name.
func (p *Printer) Stage(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = name
	p.start = p.now()
}

// Progress redraws the current stage's progress line. It has the signature of
// the worker pool's progress callback. The line is finished once done reaches total.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) Progress(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if total <= 0 {
		return
	}
	filled := done * barWidth / total
	elapsed := p.now().Sub(p.start).Round(time.Second)
	fmt.Fprintf(p.out, "\r%-10s [%s%s] %d/%d %s",
		p.stage,
		strings.Repeat("#", filled),
		strings.Repeat(".", barWidth-filled),
		done, total, elapsed)
	if done >= total {
		fmt.Fprintln(p.out)
	}
}

// PrintDump outputs where a dump came from and where it was stored.
func (p *Printer) PrintDump(version, url, path string, downloaded bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Version:  %s\n", version)
	fmt.Fprintf(&sb, "Source:   %s\n", url)
	fmt.Fprintf(&sb, "Path:     %s\n", path)
	if downloaded {
		sb.WriteString("Status:   downloaded")
	} else {
		sb.WriteString("Status:   already present")
	}
	p.printBox("WIKIPEDIA DUMP", sb.String())
}

// PrintTitles outputs a summary of title dictionary extraction.
func (p *Printer) PrintTitles(st corpus.TitleStats, path string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Files:       %d\n", st.Files)
	fmt.Fprintf(&sb, "Records:     %d (malformed %d)\n", st.Records, st.Malformed)
	fmt.Fprintf(&sb, "Titles:      %d\n", st.Accepted)
	fmt.Fprintf(&sb, "Duplicates:  %d\n", st.Duplicates)
	fmt.Fprintf(&sb, "Saved to:    %s", path)
	p.printBox("TITLE DICTIONARY", sb.String())
}

// PrintCorpus outputs the final counts of a corpus build.
func (p *Printer) PrintCorpus(m *corpus.Manifest) {
	if m == nil {
		return
	}
	st := m.Stats

	var sb strings.Builder
	fmt.Fprintf(&sb, "Output:      %s\n", m.Output)
	fmt.Fprintf(&sb, "Size:        %s\n", humanBytes(m.Size))
	analyzer := m.Analyzer
	if m.Dictionary != "" {
		analyzer += "/" + m.Dictionary
	}
	if m.BaseForm {
		analyzer += " (base form)"
	}
	fmt.Fprintf(&sb, "Analyzer:    %s\n", analyzer)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Files:       %d\n", st.Files)
	fmt.Fprintf(&sb, "Records:     %d (malformed %d)\n", st.Records, st.Malformed)
	fmt.Fprintf(&sb, "Articles:    %d (skipped %d)\n", st.Articles, st.SkippedArticles)
	fmt.Fprintf(&sb, "Sentences:   %d (short %d)\n", st.Sentences, st.ShortSentences)
	fmt.Fprintf(&sb, "Written:     %d\n", st.Written)
	fmt.Fprintf(&sb, "Anchors:     %d resolved\n", st.ResolvedAnchors)
	if m.Titles > 0 {
		fmt.Fprintf(&sb, "Titles:      %d substituted of %d known\n", st.SubstitutedTitles, m.Titles)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "BLAKE3:      %s", m.BLAKE3)
	p.printBox("CORPUS", sb.String())
}

// PrintModel outputs the files produced by training.
func (p *Printer) PrintModel(prefix string, trained bool) {
	status := "trained"
	if !trained {
		status = "already present"
	}
	p.printBox("FASTTEXT MODEL", fmt.Sprintf("Binary:   %s.bin\nVectors:  %s.vec\nStatus:   %s", prefix, prefix, status))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
