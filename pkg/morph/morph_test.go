package morph

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newIPA(t *testing.T) *Kagome {
	t.Helper()
	k, err := New(DictIPA)
	if err != nil {
		t.Fatalf("Failed to create tokenizer: %v", err)
	}
	return k
}

func TestTokenizeCoversInput(t *testing.T) {
	k := newIPA(t)
	text := "すもももももももものうちです"

	tokens, err := k.Tokenize(context.Background(), text)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Surface)
	}
	if sb.String() != text {
		t.Errorf("surfaces do not reconstruct input: %q", sb.String())
	}

	want := []string{"すもも", "も", "もも", "も", "もも", "の", "うち", "です"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(want), len(tokens), tokens)
	}
	for i, w := range want {
		if tokens[i].Surface != w {
			t.Errorf("token %d: got %q, want %q", i, tokens[i].Surface, w)
		}
	}
	if tokens[0].POS != "名詞" || tokens[1].POS != "助詞" {
		t.Errorf("unexpected POS: %q %q", tokens[0].POS, tokens[1].POS)
	}
	if tokens[0].Reading != "スモモ" {
		t.Errorf("reading = %q, want スモモ", tokens[0].Reading)
	}
}

func TestTokenizeBaseForm(t *testing.T) {
	k := newIPA(t)
	tokens, err := k.Tokenize(context.Background(), "山に登った")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	found := false
	for _, tok := range tokens {
		if tok.Surface == "登っ" {
			found = true
			if tok.Basic != "登る" {
				t.Errorf("basic form = %q, want 登る", tok.Basic)
			}
			if tok.POS != "動詞" {
				t.Errorf("POS = %q, want 動詞", tok.POS)
			}
			if len(tok.Features) == 0 || tok.Features[0] != tok.POS {
				t.Errorf("features %v do not start with POS", tok.Features)
			}
		}
	}
	if !found {
		t.Fatalf("expected token 登っ in %+v", tokens)
	}
}

func TestTokenizeUnknownWordFallsBackToSurface(t *testing.T) {
	k := newIPA(t)
	tokens, err := k.Tokenize(context.Background(), "Medium")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(tokens) == 0 {
		t.Fatal("no tokens")
	}
	for _, tok := range tokens {
		if tok.Basic == "" || tok.Basic == "*" {
			t.Errorf("token %q has no usable base form", tok.Surface)
		}
	}
}

func TestTokenizeEmpty(t *testing.T) {
	k := newIPA(t)
	tokens, err := k.Tokenize(context.Background(), "")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("expected no tokens, got %d", len(tokens))
	}
}

func TestTokenizeInvalidUTF8(t *testing.T) {
	k := newIPA(t)
	_, err := k.Tokenize(context.Background(), "abc\xff\xfe")
	var tokErr *TokenizationError
	if !errors.As(err, &tokErr) {
		t.Fatalf("expected TokenizationError, got %v", err)
	}
}

func TestTokenizeCanceled(t *testing.T) {
	k := newIPA(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := k.Tokenize(ctx, "漢字"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewUnknownDictionary(t *testing.T) {
	_, err := New("neologd")
	var tokErr *TokenizationError
	if !errors.As(err, &tokErr) {
		t.Fatalf("expected TokenizationError, got %v", err)
	}
}

func TestTokenizationErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &TokenizationError{Op: "init", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("message %q lacks cause", err.Error())
	}
}
