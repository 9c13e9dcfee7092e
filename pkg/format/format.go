// Package format renders analysis results as CSV, plain text or JSON.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/japaniel/morphan/pkg/analysis"
)

// Format selects an output serialization.
type Format string

// Supported output formats. CSV and Text write a words and a kanji file; JSON writes one file.
const (
	CSV  Format = "csv"
	Text Format = "txt"
	JSON Format = "json"
)

// ParseFormat validates an output format selector.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, Text, JSON:
		return f, nil
	}
	return "", &analysis.ConfigurationError{Field: "output format", Value: s, Message: "want csv, txt or json"}
}

// quote wraps v in double quotes. Embedded quotes are not escaped.
func quote(v string) string { return `"` + v + `"` }

func joinInts(ns []int, sep string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, sep)
}

// EncodeCSV returns the word table and the kanji table.
//
// Words keep aggregation order. Columns are basic, pos, reading, count and
// positions, the latter joined by ";".
func EncodeCSV(words []analysis.AggregatedWord, kanji []string) ([]byte, []byte) {
	var wb bytes.Buffer
	wb.WriteString("basic,pos,reading,count,positions\n")
	for _, w := range words {
		fields := []string{
			quote(w.Basic),
			quote(w.POS),
			quote(w.Reading),
			quote(strconv.Itoa(w.Count)),
			quote(joinInts(w.Positions, ";")),
		}
		wb.WriteString(strings.Join(fields, ","))
		wb.WriteByte('\n')
	}

	var kb bytes.Buffer
	kb.WriteString("kanji\n")
	for _, k := range kanji {
		kb.WriteString(quote(k))
		kb.WriteByte('\n')
	}
	return wb.Bytes(), kb.Bytes()
}

// ByFirstOccurrence returns a copy of words sorted by their first position.
func ByFirstOccurrence(words []analysis.AggregatedWord) []analysis.AggregatedWord {
	sorted := make([]analysis.AggregatedWord, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FirstPosition() < sorted[j].FirstPosition()
	})
	return sorted
}

// EncodeText returns the base forms in reading order joined by a space, and
// the kanji concatenated without a separator.
func EncodeText(words []analysis.AggregatedWord, kanji []string) ([]byte, []byte) {
	sorted := ByFirstOccurrence(words)
	basics := make([]string, len(sorted))
	for i, w := range sorted {
		basics[i] = w.Basic
	}
	return []byte(strings.Join(basics, " ")), []byte(strings.Join(kanji, ""))
}

// Response is the JSON shape served by the HTTP API and written by the json format.
type Response struct {
	ContentWords []Word   `json:"contentWords"`
	KanjiList    []string `json:"kanjiList"`
	TokenList    any      `json:"tokenList,omitempty"`
	AnalysisID   int64    `json:"analysisId,omitempty"`
}

// Word is an aggregated word with optional dictionary glosses.
type Word struct {
	analysis.AggregatedWord
	Glosses []string `json:"glosses,omitempty"`
}

// GlossFunc looks up glosses for a word; it may be nil.
type GlossFunc func(basic, reading string) []string

// NewResponse converts a result into its JSON view.
func NewResponse(res analysis.Result, gloss GlossFunc) Response {
	words := make([]Word, len(res.ContentWords))
	for i, w := range res.ContentWords {
		words[i] = Word{AggregatedWord: w}
		if gloss != nil {
			words[i].Glosses = gloss(w.Basic, w.Reading)
		}
	}
	kanji := res.KanjiList
	if kanji == nil {
		kanji = []string{}
	}
	r := Response{ContentWords: words, KanjiList: kanji}
	if len(res.Tokens) > 0 {
		r.TokenList = res.Tokens
	}
	return r
}

// EncodeJSON renders the result as indented JSON.
func EncodeJSON(res analysis.Result, gloss GlossFunc) ([]byte, error) {
	return json.MarshalIndent(NewResponse(res, gloss), "", "  ")
}

// FileNames returns the files WriteFiles produces for basename.
func FileNames(basename string, f Format) []string {
	if f == JSON {
		return []string{basename + ".json"}
	}
	ext := string(f)
	return []string{basename + "_words." + ext, basename + "_kanji." + ext}
}

// WriteFiles writes the result under dir, creating it if needed, and returns
// the paths written.
func WriteFiles(dir, basename string, f Format, res analysis.Result, gloss GlossFunc) ([]string, error) {
	if basename == "" {
		return nil, fmt.Errorf("empty output basename")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var contents [][]byte
	switch f {
	case CSV:
		w, k := EncodeCSV(res.ContentWords, res.KanjiList)
		contents = [][]byte{w, k}
	case Text:
		w, k := EncodeText(res.ContentWords, res.KanjiList)
		contents = [][]byte{w, k}
	case JSON:
		b, err := EncodeJSON(res, gloss)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		contents = [][]byte{b}
	default:
		return nil, &analysis.ConfigurationError{Field: "output format", Value: string(f), Message: "want csv, txt or json"}
	}

	names := FileNames(basename, f)
	paths := make([]string, 0, len(names))
	for i, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, contents[i], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
