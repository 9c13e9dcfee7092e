package morph

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Dictionary names accepted by New.
const (
	DictIPA = "ipa"
	DictUni = "uni"
)

// Morpheme is a single token reported by the tokenizer.
type Morpheme struct {
	Surface  string   `json:"surface"`  // The text as it appears (e.g. "行っ")
	Basic    string   `json:"basic"`    // The dictionary form (e.g. "行く"), Surface when unknown
	POS      string   `json:"pos"`      // Primary part of speech (e.g. "動詞")
	Reading  string   `json:"reading"`  // Katakana reading, may be empty
	Features []string `json:"features"` // Full POS hierarchy, e.g. ["動詞", "自立", "*", "*"]
	Start    int      `json:"start"`    // rune offset of the token in the input
	End      int      `json:"end"`
}

// Tokenizer turns text into an ordered morpheme sequence covering the whole input.
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]Morpheme, error)
}

// TokenizationError reports a failure of the underlying engine or its dictionary.
type TokenizationError struct {
	Op  string
	Err error
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("tokenize: %s: %v", e.Op, e.Err)
}

func (e *TokenizationError) Unwrap() error { return e.Err }

// Kagome wraps a kagome tokenizer. It is built once and is safe for concurrent use.
type Kagome struct {
	t        *tokenizer.Tokenizer
	dictName string
}

// New creates a kagome tokenizer backed by the named dictionary ("ipa" or "uni").
// An empty name selects the IPA dictionary.
func New(dictName string) (*Kagome, error) {
	if dictName == "" {
		dictName = DictIPA
	}
	d, err := loadDict(dictName)
	if err != nil {
		return nil, &TokenizationError{Op: "load dictionary", Err: err}
	}
	t, err := tokenizer.New(d, tokenizer.OmitBosEos())
	if err != nil {
		return nil, &TokenizationError{Op: "init " + dictName, Err: err}
	}
	return &Kagome{t: t, dictName: dictName}, nil
}

func loadDict(name string) (*dict.Dict, error) {
	switch name {
	case DictIPA:
		return ipa.Dict(), nil
	case DictUni:
		return uni.Dict(), nil
	default:
		return nil, fmt.Errorf("unknown dictionary %q", name)
	}
}

// DictName returns the name of the dictionary the tokenizer was built with.
func (k *Kagome) DictName() string { return k.dictName }

// Tokenize breaks text into morphemes with readings and base forms.
func (k *Kagome) Tokenize(ctx context.Context, text string) ([]Morpheme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.ValidString(text) {
		return nil, &TokenizationError{Op: "decode input", Err: fmt.Errorf("input is not valid UTF-8")}
	}
	if text == "" {
		return []Morpheme{}, nil
	}

	tokens := k.t.Tokenize(text)
	result := make([]Morpheme, 0, len(tokens))
	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		result = append(result, toMorpheme(token))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func toMorpheme(token tokenizer.Token) Morpheme {
	features := token.Features()

	// Unknown words report "*" (IPA) or nothing at all for the base form.
	basic := token.Surface
	if b, ok := token.BaseForm(); ok && b != "" && b != "*" {
		basic = b
	}

	reading := ""
	if r, ok := token.Reading(); ok && r != "*" {
		reading = r
	}

	pos := ""
	if p := token.POS(); len(p) > 0 {
		pos = p[0]
	} else if len(features) > 0 {
		pos = features[0]
	}

	return Morpheme{
		Surface:  token.Surface,
		Basic:    basic,
		POS:      pos,
		Reading:  reading,
		Features: features,
		Start:    token.Start,
		End:      token.End,
	}
}
