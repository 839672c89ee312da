// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package tokenizer

import (
	"strings"
	"testing"
)

// stubTokenizer splits on spaces and tags every token with a fixed
// part of speech, so ranking logic can be tested without loading the
// dictionary.
type stubTokenizer struct {
	pos string
}

func (s stubTokenizer) Tokenize(text string) []Token {
	var tokens []Token
	for _, surface := range strings.Fields(text) {
		tokens = append(tokens, Token{Surface: surface, PartOfSpeech: s.pos})
	}
	return tokens
}

func TestTopNouns(t *testing.T) {
	nouns := stubTokenizer{pos: "名詞"}

	t.Run("counts and orders by frequency", func(t *testing.T) {
		texts := []string{
			"カフェ ラテ カフェ",
			"カフェ 旅行",
		}
		got := TopNouns(nouns, texts, 10)
		if len(got) != 3 {
			t.Fatalf("got %d nouns, want 3", len(got))
		}
		if got[0].Noun != "カフェ" || got[0].Count != 3 {
			t.Errorf("top = %+v, want カフェ x3", got[0])
		}
	})

	t.Run("equal counts order lexicographically", func(t *testing.T) {
		got := TopNouns(nouns, []string{"りんご みかん"}, 10)
		if len(got) != 2 {
			t.Fatalf("got %d nouns, want 2", len(got))
		}
		if got[0].Noun != "みかん" || got[1].Noun != "りんご" {
			t.Errorf("order = [%s %s], want [みかん りんご]", got[0].Noun, got[1].Noun)
		}
	})

	t.Run("single-rune nouns are excluded", func(t *testing.T) {
		got := TopNouns(nouns, []string{"猫 子猫 犬"}, 10)
		if len(got) != 1 || got[0].Noun != "子猫" {
			t.Errorf("got %v, want only 子猫", got)
		}
	})

	t.Run("non-nouns are excluded", func(t *testing.T) {
		verbs := stubTokenizer{pos: "動詞"}
		if got := TopNouns(verbs, []string{"走る 食べる"}, 10); len(got) != 0 {
			t.Errorf("got %v, want no entries for non-noun tokens", got)
		}
	})

	t.Run("limit truncates", func(t *testing.T) {
		got := TopNouns(nouns, []string{"東京 大阪 京都 札幌"}, 2)
		if len(got) != 2 {
			t.Errorf("got %d nouns, want 2", len(got))
		}
	})

	t.Run("no texts", func(t *testing.T) {
		if got := TopNouns(nouns, nil, 10); len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})
}

func TestProviderCachesResult(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping dictionary load in short mode")
	}

	p := NewProvider()
	first, err := p.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	second, err := p.Get()
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if first == nil || second == nil {
		t.Fatal("Get returned a nil tokenizer")
	}

	tokens := first.Tokenize("私はカフェで勉強します")
	if len(tokens) == 0 {
		t.Fatal("Tokenize returned no tokens")
	}
	foundNoun := false
	for _, token := range tokens {
		if token.PartOfSpeech == "名詞" {
			foundNoun = true
			break
		}
	}
	if !foundNoun {
		t.Error("expected at least one noun in the analyzed sentence")
	}
}
