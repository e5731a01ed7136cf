package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubTagger tags tokens from a fixed map; unknown tokens get "".
type stubTagger struct {
	tags map[string]string
}

func (s *stubTagger) Tag(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = s.tags[tok]
	}
	return out
}

func TestCleanStripsPunctuationAndLowercases(t *testing.T) {
	p := NewQueryPreprocessor(nil, nil)

	got := p.Clean("What IS the Library's Opening-Time?!")
	assert.Equal(t, "library opening time", got)
}

func TestCleanDropsStopwordsAndShortTokens(t *testing.T) {
	p := NewQueryPreprocessor(nil, nil)

	got := p.Clean("a history of the x empire")
	assert.Equal(t, "history empire", got)
}

func TestCleanKeepsTaggedContentWords(t *testing.T) {
	// "is" is a stopword but the tagger marks it as a verb, so the
	// POS rule keeps it.
	tagger := &stubTagger{tags: map[string]string{
		"is":      "V",
		"library": "N",
		"open":    "A",
	}}
	p := NewQueryPreprocessor(tagger, nil)

	got := p.Clean("is the library open")
	assert.Equal(t, "is library open", got)
}

func TestCleanAllTokensFilteredReturnsCleanedOriginal(t *testing.T) {
	p := NewQueryPreprocessor(nil, nil)

	// Every token is a stopword or single character; the cleaned but
	// unfiltered query comes back instead of an empty string.
	got := p.Clean("Is it a B?")
	assert.Equal(t, "is it a b", got)
}

func TestCleanEmptyInput(t *testing.T) {
	p := NewQueryPreprocessor(nil, nil)

	assert.Equal(t, "", p.Clean(""))
	assert.Equal(t, "", p.Clean("?!...,"))
}

func TestCleanAlreadyCleanedQueryUnchanged(t *testing.T) {
	p := NewQueryPreprocessor(nil, nil)

	cleaned := p.Clean("ancient maritime navigation techniques")
	assert.Equal(t, "ancient maritime navigation techniques", cleaned)
	// Cleaning is stable on its own output.
	assert.Equal(t, cleaned, p.Clean(cleaned))
}

func TestCleanNormalizesWhitespace(t *testing.T) {
	p := NewQueryPreprocessor(nil, nil)

	got := p.Clean("  naval   history \n archives ")
	assert.Equal(t, "naval history archives", got)
}
