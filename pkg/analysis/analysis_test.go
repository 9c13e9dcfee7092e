package analysis

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/japaniel/morphan/pkg/morph"
)

// fakeTokenizer returns a fixed token stream regardless of input.
type fakeTokenizer struct {
	tokens []morph.Morpheme
	err    error
}

func (f *fakeTokenizer) Tokenize(ctx context.Context, text string) ([]morph.Morpheme, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

func m(surface, basic, pos, reading string) morph.Morpheme {
	return morph.Morpheme{Surface: surface, Basic: basic, POS: pos, Reading: reading}
}

// sumomoTokens is the IPA tokenization of すもももももももものうちです.
var sumomoTokens = []morph.Morpheme{
	m("すもも", "すもも", "名詞", "スモモ"),
	m("も", "も", "助詞", "モ"),
	m("もも", "もも", "名詞", "モモ"),
	m("も", "も", "助詞", "モ"),
	m("もも", "もも", "名詞", "モモ"),
	m("の", "の", "助詞", "ノ"),
	m("うち", "うち", "名詞", "ウチ"),
	m("です", "です", "助動詞", "デス"),
}

func TestExtractContentWordsDenseOrdinals(t *testing.T) {
	got := ExtractContentWords(sumomoTokens, StrictTags())
	want := []struct {
		basic   string
		ordinal int
	}{{"すもも", 0}, {"もも", 1}, {"もも", 2}, {"うち", 3}}

	if len(got) != len(want) {
		t.Fatalf("expected %d content words, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Basic != w.basic || got[i].Ordinal != w.ordinal {
			t.Errorf("occurrence %d: got (%s, %d), want (%s, %d)", i, got[i].Basic, got[i].Ordinal, w.basic, w.ordinal)
		}
	}
}

func TestExtractContentWordsTagSets(t *testing.T) {
	tokens := []morph.Morpheme{
		m("とても", "とても", "副詞", "トテモ"),
		m("高い", "高い", "形容詞", "タカイ"),
		m("山", "山", "名詞", "ヤマ"),
		m("に", "に", "助詞", "ニ"),
		m("登っ", "登る", "動詞", "ノボッ"),
		m("た", "た", "助動詞", "タ"),
	}

	tests := []struct {
		name string
		tags POSTagSet
		want []string
	}{
		{"strict", StrictTags(), []string{"高い", "山", "登る"}},
		{"loose", LooseTags(), []string{"とても", "高い", "山", "登る"}},
		{"nouns only", NewPOSTagSet("名詞"), []string{"山"}},
		{"empty set", NewPOSTagSet(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractContentWords(tokens, tt.tags)
			var basics []string
			for i, o := range got {
				if o.Ordinal != i {
					t.Errorf("ordinal %d at index %d", o.Ordinal, i)
				}
				basics = append(basics, o.Basic)
			}
			if !reflect.DeepEqual(basics, tt.want) {
				t.Errorf("got %v, want %v", basics, tt.want)
			}
		})
	}
}

func TestAggregateSumomo(t *testing.T) {
	got := Aggregate(ExtractContentWords(sumomoTokens, StrictTags()))
	want := []AggregatedWord{
		{Basic: "すもも", POS: "名詞", Reading: "スモモ", Count: 1, Positions: []int{0}},
		{Basic: "もも", POS: "名詞", Reading: "モモ", Count: 2, Positions: []int{1, 2}},
		{Basic: "うち", POS: "名詞", Reading: "ウチ", Count: 1, Positions: []int{3}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestAggregateFirstReadingWins(t *testing.T) {
	occ := []ContentWordOccurrence{
		{Morpheme: m("日", "日", "名詞", "ヒ"), Ordinal: 0},
		{Morpheme: m("日", "日", "名詞", "ニチ"), Ordinal: 1},
		{Morpheme: m("日", "日", "名詞", ""), Ordinal: 2},
	}
	got := Aggregate(occ)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Reading != "ヒ" {
		t.Errorf("reading = %q, want ヒ", got[0].Reading)
	}
	if got[0].Count != 3 || !reflect.DeepEqual(got[0].Positions, []int{0, 1, 2}) {
		t.Errorf("unexpected count/positions: %d %v", got[0].Count, got[0].Positions)
	}
}

func TestAggregateKeyIncludesPOS(t *testing.T) {
	// Same base form with a different POS is a separate record, and a base
	// form containing the old "_" separator cannot collide with another key.
	occ := []ContentWordOccurrence{
		{Morpheme: m("a_b", "a_b", "名詞", ""), Ordinal: 0},
		{Morpheme: m("a", "a", "b_名詞", ""), Ordinal: 1},
		{Morpheme: m("考え", "考え", "名詞", "カンガエ"), Ordinal: 2},
		{Morpheme: m("考え", "考え", "動詞", "カンガエ"), Ordinal: 3},
		{Morpheme: m("", "", "名詞", ""), Ordinal: 4},
		{Morpheme: m("", "", "名詞", ""), Ordinal: 5},
	}
	got := Aggregate(occ)
	if len(got) != 5 {
		t.Fatalf("expected 5 records, got %d: %+v", len(got), got)
	}
	last := got[4]
	if last.Basic != "" || last.Count != 2 {
		t.Errorf("empty basic form record = %+v", last)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestAggregateProperties(t *testing.T) {
	occ := ExtractContentWords(sumomoTokens, LooseTags())
	words := Aggregate(occ)

	total := 0
	seen := map[wordKey]bool{}
	for _, w := range words {
		if w.Count != len(w.Positions) {
			t.Errorf("%s: count %d != len(positions) %d", w.Basic, w.Count, len(w.Positions))
		}
		k := wordKey{w.Basic, w.POS}
		if seen[k] {
			t.Errorf("duplicate key %v", k)
		}
		seen[k] = true
		total += w.Count
	}
	if total != len(occ) {
		t.Errorf("sum of counts %d != occurrences %d", total, len(occ))
	}

	// Replaying the positions in order reproduces the same counts.
	replay := make([]ContentWordOccurrence, len(occ))
	for _, w := range words {
		for _, p := range w.Positions {
			replay[p] = ContentWordOccurrence{Morpheme: m(w.Basic, w.Basic, w.POS, w.Reading), Ordinal: p}
		}
	}
	again := Aggregate(replay)
	if !reflect.DeepEqual(again, words) {
		t.Errorf("replay mismatch:\n got %+v\nwant %+v", again, words)
	}
}

func TestExtractKanji(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		match KanjiMatcher
		want  []string
	}{
		{"kana only", "すもももももももものうちです", nil, []string{}},
		{"simple", "漢字", nil, []string{"漢", "字"}},
		{"dedupe keeps first position", "日本の日曜日は本当に休日", nil, []string{"日", "本", "曜", "当", "休"}},
		{"empty", "", nil, []string{}},
		{"iteration mark is Han script", "人々", IsHan, []string{"人", "々"}},
		{"block matcher skips iteration mark", "人々", IsUnifiedIdeograph, []string{"人"}},
		{"mixed scripts", "Go言語でテスト123", nil, []string{"言", "語"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKanji(tt.text, tt.match)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePOSTagSet(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"strict", []string{"動詞", "名詞", "形容詞"}, false},
		{"loose", []string{"副詞", "動詞", "名詞", "形容詞"}, false},
		{"名詞, 副詞", []string{"副詞", "名詞"}, false},
		{"", nil, true},
		{"strcit", nil, true},
		{" , ", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePOSTagSet(tt.in)
			if tt.wantErr {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ConfigurationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.Tags(), tt.want) {
				t.Errorf("got %v, want %v", got.Tags(), tt.want)
			}
		})
	}
}

func TestParseKanjiMatcher(t *testing.T) {
	for _, name := range []string{"", KanjiScript, KanjiBlock} {
		if _, err := ParseKanjiMatcher(name); err != nil {
			t.Errorf("ParseKanjiMatcher(%q): %v", name, err)
		}
	}
	if _, err := ParseKanjiMatcher("hiragana"); err == nil {
		t.Error("expected error for unknown matcher")
	}
}

func TestAnalyzerWithFakeTokenizer(t *testing.T) {
	a := NewAnalyzer(&fakeTokenizer{tokens: sumomoTokens}, Options{KeepTokens: true})
	res, err := a.Analyze(context.Background(), "すもももももももものうちです")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(res.ContentWords) != 3 {
		t.Fatalf("expected 3 words, got %d", len(res.ContentWords))
	}
	if len(res.KanjiList) != 0 {
		t.Errorf("expected no kanji, got %v", res.KanjiList)
	}
	if len(res.Tokens) != len(sumomoTokens) {
		t.Errorf("expected %d tokens kept, got %d", len(sumomoTokens), len(res.Tokens))
	}
	if res.WordCount() != 4 {
		t.Errorf("WordCount = %d, want 4", res.WordCount())
	}
}

func TestAnalyzerPropagatesTokenizationError(t *testing.T) {
	tokErr := &morph.TokenizationError{Op: "init", Err: errors.New("dictionary unavailable")}
	a := NewAnalyzer(&fakeTokenizer{err: tokErr}, Options{})
	_, err := a.Analyze(context.Background(), "漢字")
	var got *morph.TokenizationError
	if !errors.As(err, &got) {
		t.Fatalf("expected TokenizationError, got %v", err)
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	a := NewAnalyzer(&fakeTokenizer{tokens: []morph.Morpheme{}}, Options{})
	res, err := a.Analyze(context.Background(), "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(res.ContentWords) != 0 || len(res.KanjiList) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if res.Tokens != nil {
		t.Errorf("tokens should not be kept by default")
	}
}

func TestAnalyzeWithKagome(t *testing.T) {
	tok, err := morph.New(morph.DictIPA)
	if err != nil {
		t.Fatalf("failed to create tokenizer: %v", err)
	}
	a := NewAnalyzer(tok, Options{Tags: StrictTags()})

	res, err := a.Analyze(context.Background(), "すもももももももものうちです")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	want := []AggregatedWord{
		{Basic: "すもも", POS: "名詞", Reading: "スモモ", Count: 1, Positions: []int{0}},
		{Basic: "もも", POS: "名詞", Reading: "モモ", Count: 2, Positions: []int{1, 2}},
		{Basic: "うち", POS: "名詞", Reading: "ウチ", Count: 1, Positions: []int{3}},
	}
	if !reflect.DeepEqual(res.ContentWords, want) {
		t.Errorf("got %+v\nwant %+v", res.ContentWords, want)
	}
	if len(res.KanjiList) != 0 {
		t.Errorf("expected no kanji, got %v", res.KanjiList)
	}

	res, err = a.Analyze(context.Background(), "漢字を書く")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !reflect.DeepEqual(res.KanjiList, []string{"漢", "字", "書"}) {
		t.Errorf("kanji = %v", res.KanjiList)
	}
}
