// Package analysis extracts content words and kanji from Japanese text.
//
// The pipeline is: tokenize, keep content words, group them by (base form,
// part of speech), and separately collect the distinct kanji of the raw text.
// Everything after tokenization is a pure function of its input.
package analysis

import (
	"context"

	"github.com/japaniel/morphan/pkg/morph"
)

// Result is the outcome of analyzing one text.
type Result struct {
	ContentWords []AggregatedWord `json:"contentWords"`
	KanjiList    []string         `json:"kanjiList"`
	// Tokens is the full token stream, kept for callers that display it.
	Tokens []morph.Morpheme `json:"tokenList,omitempty"`
}

// WordCount returns the number of content-word occurrences in the result.
func (r Result) WordCount() int {
	n := 0
	for _, w := range r.ContentWords {
		n += w.Count
	}
	return n
}

// Options configures an Analyzer.
type Options struct {
	// Tags selects the content-word parts of speech. nil means StrictTags.
	Tags POSTagSet
	// Kanji decides what counts as kanji. nil means IsHan.
	Kanji KanjiMatcher
	// KeepTokens copies the token stream into Result.Tokens.
	KeepTokens bool
}

// Analyzer runs the extraction pipeline over a shared tokenizer.
// It holds no per-call state and may be used from multiple goroutines.
type Analyzer struct {
	tok  morph.Tokenizer
	opts Options
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(tok morph.Tokenizer, opts Options) *Analyzer {
	if opts.Tags == nil {
		opts.Tags = StrictTags()
	}
	if opts.Kanji == nil {
		opts.Kanji = IsHan
	}
	return &Analyzer{tok: tok, opts: opts}
}

// Tags returns the configured content-word tag set.
func (a *Analyzer) Tags() POSTagSet { return a.opts.Tags }

// Analyze tokenizes text and builds its word frequency table and kanji list.
// Tokenizer errors are returned unchanged.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Result, error) {
	return a.AnalyzeWithTags(ctx, text, a.opts.Tags)
}

// AnalyzeWithTags is Analyze with a per-call tag set override.
func (a *Analyzer) AnalyzeWithTags(ctx context.Context, text string, tags POSTagSet) (Result, error) {
	if tags == nil {
		tags = a.opts.Tags
	}
	morphemes, err := a.tok.Tokenize(ctx, text)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		ContentWords: Aggregate(ExtractContentWords(morphemes, tags)),
		KanjiList:    ExtractKanji(text, a.opts.Kanji),
	}
	if a.opts.KeepTokens {
		res.Tokens = morphemes
	}
	return res, nil
}
