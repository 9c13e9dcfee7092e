// Package dictionary loads JMdict-simplified data and looks up English glosses
// for analyzed words.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type JMdictSense struct {
	PartOfSpeech []string      `json:"partOfSpeech"`
	Gloss        []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// DefinitionEntry is what we save to the DB in the 'definitions' column (as JSON list).
type DefinitionEntry struct {
	Senses []string `json:"senses"`
	POS    []string `json:"pos"`
}

// LoadJMdictSimplified reads a dictionary file, either the release wrapper
// object { "words": [...] } or a bare array of entries.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapper struct {
		Words []JMdictEntry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapper); err == nil && len(wrapper.Words) > 0 {
		return wrapper.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []JMdictEntry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// Index maps every kanji and kana spelling to its entries. It is read-only
// after NewIndex and safe for concurrent use.
type Index struct {
	byText map[string][]JMdictEntry
	size   int
}

// NewIndex builds an Index over entries.
func NewIndex(entries []JMdictEntry) *Index {
	idx := make(map[string][]JMdictEntry)
	for _, e := range entries {
		for _, k := range e.Kanji {
			idx[k.Text] = append(idx[k.Text], e)
		}
		for _, k := range e.Kana {
			idx[k.Text] = append(idx[k.Text], e)
		}
	}
	return &Index{byText: idx, size: len(entries)}
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return ix.size }

// Lookup returns the entries spelled word whose kana includes reading.
// Readings are compared in hiragana; an empty reading matches any entry.
func (ix *Index) Lookup(word, reading string) []JMdictEntry {
	if ix == nil || word == "" {
		return nil
	}
	candidates := make(map[string]JMdictEntry) // deduped by entry id
	for _, e := range ix.byText[word] {
		candidates[e.Id] = e
	}

	var results []JMdictEntry
	for _, entry := range candidates {
		if isMatch(entry, word, reading) {
			results = append(results, entry)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Id < results[j].Id
	})
	return results
}

// Glosses returns the English glosses of every matching entry in order.
func (ix *Index) Glosses(word, reading string) []string {
	var out []string
	for _, e := range ix.Lookup(word, reading) {
		for _, s := range e.Sense {
			for _, g := range s.Gloss {
				if g.Lang == "" || g.Lang == "eng" {
					out = append(out, g.Text)
				}
			}
		}
	}
	return out
}

// PrimaryReading returns the first common kana spelling of the best match for
// word, or its first kana spelling when none is common.
func (ix *Index) PrimaryReading(word string) string {
	matches := ix.Lookup(word, "")
	if len(matches) == 0 || len(matches[0].Kana) == 0 {
		return ""
	}
	for _, k := range matches[0].Kana {
		if k.Common {
			return k.Text
		}
	}
	return matches[0].Kana[0].Text
}

func isMatch(entry JMdictEntry, word, reading string) bool {
	hasText := false
	for _, k := range entry.Kanji {
		if k.Text == word {
			hasText = true
			break
		}
	}
	// Many words are written in kana only.
	for _, k := range entry.Kana {
		if k.Text == word {
			hasText = true
			break
		}
	}
	if !hasText {
		return false
	}
	if reading == "" {
		return true
	}

	want := ToHiragana(reading)
	for _, k := range entry.Kana {
		if ToHiragana(k.Text) == want {
			return true
		}
	}
	return false
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// FormatDefinitions flattens the senses of entries into the JSON stored in
// words.definitions.
func FormatDefinitions(entries []JMdictEntry) (string, error) {
	defs := make([]DefinitionEntry, 0, len(entries))
	for _, e := range entries {
		var senses, poses []string
		for _, s := range e.Sense {
			for _, g := range s.Gloss {
				senses = append(senses, g.Text)
			}
			poses = append(poses, s.PartOfSpeech...)
		}
		defs = append(defs, DefinitionEntry{Senses: senses, POS: poses})
	}

	b, err := json.Marshal(defs)
	return string(b), err
}
