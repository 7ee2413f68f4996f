package config

import (
	"path/filepath"

	"github.com/jonathan/jawiki-corpus/internal/fetch"
)

// Layout names the artifacts of one dump version inside a work directory.
type Layout struct {
	Dir      string
	Version  string
	BaseForm bool
	Compress bool
}

// NewLayout returns the layout for a resolved dump version.
func (c Config) NewLayout(version string) Layout {
	return Layout{Dir: c.WorkDir, Version: version, BaseForm: c.BaseForm, Compress: c.Compress}
}

func (l Layout) Dump() string {
	return filepath.Join(l.Dir, fetch.DumpName(l.Version))
}

func (l Layout) Extracted() string {
	return filepath.Join(l.Dir, "jawiki_"+l.Version)
}

func (l Layout) Titles() string {
	return filepath.Join(l.Dir, "jawiki_titles_"+l.Version+".csv")
}

// Corpus is the segmented corpus. Base-form corpora carry an "orig" marker.
func (l Layout) Corpus() string {
	name := "jawiki_" + l.stem() + ".txt"
	if l.Compress {
		name += ".xz"
	}
	return filepath.Join(l.Dir, name)
}

// Model is the fastText output prefix; fasttext appends .bin and .vec.
func (l Layout) Model() string {
	return filepath.Join(l.Dir, "fasttext_jawiki_"+l.stem())
}

func (l Layout) stem() string {
	if l.BaseForm {
		return "orig_" + l.Version
	}
	return l.Version
}
