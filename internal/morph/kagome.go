package morph

import (
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Kagome analyzes text in process with an embedded dictionary.
type Kagome struct {
	t *tokenizer.Tokenizer
}

// NewKagome loads the named dictionary ("ipa" when empty, or "uni").
func NewKagome(name string) (*Kagome, error) {
	var d *dict.Dict
	switch name {
	case "", "ipa":
		d = ipa.Dict()
	case "uni":
		d = uni.Dict()
	default:
		return nil, &AnalyzerError{Backend: BackendKagome, Message: "unknown dictionary " + name}
	}
	t, err := tokenizer.New(d, tokenizer.OmitBosEos())
	if err != nil {
		return nil, &AnalyzerError{Backend: BackendKagome, Message: "failed to create tokenizer", Cause: err}
	}
	return &Kagome{t: t}, nil
}

// Analyze never fails.
func (k *Kagome) Analyze(text string) ([]Morpheme, error) {
	toks := k.t.Tokenize(text)
	out := make([]Morpheme, 0, len(toks))

	// Token positions are byte offsets; count runes as we go.
	bytePos, runePos := 0, 0
	for _, tok := range toks {
		if tok.Class == tokenizer.DUMMY || tok.Surface == "" {
			continue
		}
		if tok.Position < bytePos || tok.Position > len(text) {
			continue
		}
		runePos += utf8.RuneCountInString(text[bytePos:tok.Position])
		bytePos = tok.Position

		n := utf8.RuneCountInString(tok.Surface)
		m := Morpheme{Surface: tok.Surface, Start: runePos, End: runePos + n}
		if base, ok := tok.BaseForm(); ok {
			m.BaseForm = base
		}
		out = append(out, m)
	}
	return out, nil
}

// Close is a no-op.
func (k *Kagome) Close() error {
	return nil
}
