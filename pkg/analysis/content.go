package analysis

import (
	"sort"
	"strings"

	"github.com/japaniel/morphan/pkg/morph"
)

// Primary part-of-speech labels used by the IPA and UniDic dictionaries.
const (
	POSNoun      = "名詞"
	POSVerb      = "動詞"
	POSAdjective = "形容詞"
	POSAdverb    = "副詞"
)

// Tag set presets.
const (
	PresetStrict = "strict" // nouns, verbs, adjectives
	PresetLoose  = "loose"  // strict plus adverbs
)

// POSTagSet is the set of primary POS tags that make a morpheme a content word.
type POSTagSet map[string]struct{}

// NewPOSTagSet builds a tag set from the given tags.
func NewPOSTagSet(tags ...string) POSTagSet {
	s := make(POSTagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// StrictTags returns {名詞, 動詞, 形容詞}.
func StrictTags() POSTagSet { return NewPOSTagSet(POSNoun, POSVerb, POSAdjective) }

// LooseTags returns {名詞, 動詞, 形容詞, 副詞}.
func LooseTags() POSTagSet {
	return NewPOSTagSet(POSNoun, POSVerb, POSAdjective, POSAdverb)
}

// ParsePOSTagSet accepts a preset name ("strict", "loose") or a comma-separated
// list of POS tags (e.g. "名詞,動詞").
func ParsePOSTagSet(s string) (POSTagSet, error) {
	s = strings.TrimSpace(s)
	switch s {
	case PresetStrict:
		return StrictTags(), nil
	case PresetLoose:
		return LooseTags(), nil
	case "":
		return nil, &ConfigurationError{Field: "pos tag set", Message: "must not be empty"}
	}

	var tags []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if isASCII(part) {
			// Latin words are never POS labels; most likely a misspelled preset.
			return nil, &ConfigurationError{Field: "pos tag set", Value: s, Message: "unknown preset (want strict, loose or a list of tags)"}
		}
		tags = append(tags, part)
	}
	if len(tags) == 0 {
		return nil, &ConfigurationError{Field: "pos tag set", Value: s, Message: "no tags given"}
	}
	return NewPOSTagSet(tags...), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Contains reports whether pos is in the set.
func (s POSTagSet) Contains(pos string) bool {
	_, ok := s[pos]
	return ok
}

// Tags returns the tags in sorted order.
func (s POSTagSet) Tags() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// String renders the set as a comma-separated list.
func (s POSTagSet) String() string { return strings.Join(s.Tags(), ",") }

// ContentWordOccurrence is a morpheme that passed the POS filter.
type ContentWordOccurrence struct {
	morph.Morpheme
	// Ordinal is the index among content words only, not in the raw token stream.
	Ordinal int
}

// ExtractContentWords keeps the morphemes whose POS is in tags and numbers
// them 0, 1, 2, ... in the order they appear.
func ExtractContentWords(morphemes []morph.Morpheme, tags POSTagSet) []ContentWordOccurrence {
	out := make([]ContentWordOccurrence, 0, len(morphemes))
	for _, m := range morphemes {
		if !tags.Contains(m.POS) {
			continue
		}
		out = append(out, ContentWordOccurrence{Morpheme: m, Ordinal: len(out)})
	}
	return out
}
