// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

// Package tokenizer wraps the kagome morphological analyzer behind a
// small capability interface and provides the noun frequency ranking
// used by the lexical analysis endpoint.
//
// Loading the IPA dictionary takes noticeable time and memory, so the
// Provider performs it once behind a single in-flight guard: the
// Provider is constructed at process startup, passed by reference into
// the services that need it, and concurrent first callers share one
// initialization instead of each triggering their own.
package tokenizer

import (
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	kagome "github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/kmori/postlens/internal/logging"
	"github.com/kmori/postlens/internal/metrics"
	"github.com/kmori/postlens/internal/models"
)

// nounPOS is the part-of-speech tag kagome's IPA dictionary assigns to
// nouns.
const nounPOS = "名詞"

// minNounLength is the minimum surface length (in runes) for a noun to
// count toward the ranking. Single-character tokens are overwhelmingly
// particles, counters, and noise.
const minNounLength = 2

// Token is one tagged token of analyzed text.
type Token struct {
	Surface      string `json:"surface"`
	PartOfSpeech string `json:"part_of_speech"`
}

// Tokenizer analyzes text into tagged tokens.
type Tokenizer interface {
	Tokenize(text string) []Token
}

// Provider owns the lazily-initialized kagome tokenizer.
type Provider struct {
	once sync.Once
	tok  *kagome.Tokenizer
	err  error
}

// NewProvider creates an uninitialized Provider. The dictionary is
// loaded on first Get.
func NewProvider() *Provider {
	return &Provider{}
}

// Get returns the shared Tokenizer, loading the dictionary on first
// call. Concurrent callers block on the same initialization; the
// result (or the failure) is cached for the life of the process.
func (p *Provider) Get() (Tokenizer, error) {
	p.once.Do(func() {
		start := time.Now()
		tok, err := kagome.New(ipa.Dict(), kagome.OmitBosEos())
		if err != nil {
			p.err = fmt.Errorf("failed to initialize tokenizer: %w", err)
			return
		}
		p.tok = tok
		metrics.TokenizerInitDuration.Set(time.Since(start).Seconds())
		logging.Info().Dur("elapsed", time.Since(start)).Msg("Tokenizer dictionary loaded")
	})
	if p.err != nil {
		return nil, p.err
	}
	return kagomeTokenizer{tok: p.tok}, nil
}

// kagomeTokenizer adapts *kagome.Tokenizer to the Tokenizer interface.
type kagomeTokenizer struct {
	tok *kagome.Tokenizer
}

// Tokenize analyzes text and returns tagged tokens.
func (k kagomeTokenizer) Tokenize(text string) []Token {
	start := time.Now()
	defer func() {
		metrics.TokenizeDuration.Observe(time.Since(start).Seconds())
	}()

	raw := k.tok.Tokenize(text)
	tokens := make([]Token, 0, len(raw))
	for _, t := range raw {
		pos := ""
		if parts := t.POS(); len(parts) > 0 {
			pos = parts[0]
		}
		tokens = append(tokens, Token{Surface: t.Surface, PartOfSpeech: pos})
	}
	return tokens
}

// TopNouns ranks noun occurrences across the given texts: tokens
// tagged as nouns with a surface of at least two runes are counted,
// then sorted by descending count. Equal counts order
// lexicographically so the ranking is deterministic.
func TopNouns(tk Tokenizer, texts []string, limit int) []models.NounCount {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, token := range tk.Tokenize(text) {
			if token.PartOfSpeech != nounPOS {
				continue
			}
			if utf8.RuneCountInString(token.Surface) < minNounLength {
				continue
			}
			counts[token.Surface]++
		}
	}

	ranked := make([]models.NounCount, 0, len(counts))
	for noun, count := range counts {
		ranked = append(ranked, models.NounCount{Noun: noun, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Noun < ranked[j].Noun
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
