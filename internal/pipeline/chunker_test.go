package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerShortTextSingleChunk(t *testing.T) {
	c := NewChunker(100, 20)

	chunks := c.Split("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestChunkerEmptyText(t *testing.T) {
	c := NewChunker(100, 20)

	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\n  "))
}

func TestChunkerDeterminism(t *testing.T) {
	c := NewChunker(50, 10)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20) +
		"\n\n" + strings.Repeat("Pack my box with five dozen liquor jugs. ", 15)

	first := c.Split(text)
	second := c.Split(text)
	require.Equal(t, first, second)
	assert.Greater(t, len(first), 1)
}

func TestChunkerRespectsSizeBound(t *testing.T) {
	c := NewChunker(40, 8)
	text := strings.Repeat("Sentence one here. Sentence two here. ", 30)

	for i, chunk := range c.Split(text) {
		assert.LessOrEqual(t, len([]rune(chunk)), 40, "chunk %d exceeds size", i)
	}
}

func TestChunkerPrefersParagraphBoundaries(t *testing.T) {
	c := NewChunker(30, 0)
	text := "First paragraph here.\n\nSecond paragraph here."

	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph here.", chunks[0])
	assert.Equal(t, "Second paragraph here.", chunks[1])
}

func TestChunkerSplitsOversizedParagraphAtSentences(t *testing.T) {
	c := NewChunker(30, 0)
	text := "Alpha beta gamma delta. Epsilon zeta eta theta."

	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Alpha beta gamma delta.", chunks[0])
	assert.Equal(t, "Epsilon zeta eta theta.", chunks[1])
}

func TestChunkerHardCutsOversizedSentence(t *testing.T) {
	c := NewChunker(10, 2)
	text := strings.Repeat("x", 25)

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 10)
	}
	// Hard cuts advance by size-overlap, so consecutive windows share
	// the configured overlap.
	assert.Equal(t, "xxxxxxxxxx", chunks[0])
	assert.Greater(t, len(chunks), 2)
}

func TestChunkerOverlapCarriesTail(t *testing.T) {
	c := NewChunker(25, 10)
	text := "one two three four. five six seven eight. nine ten eleven twelve."

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	// Each later chunk begins with the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[max(0, len(prev)-10):])
		if !strings.HasPrefix(chunks[i], tail) {
			// The seed is dropped only when it would crowd out the
			// next segment entirely.
			assert.LessOrEqual(t, len([]rune(chunks[i])), 25)
		}
	}
}

func TestChunkerUnicodeSizes(t *testing.T) {
	c := NewChunker(10, 0)
	text := strings.Repeat("日本語テキストです。 ", 5)

	for _, chunk := range c.Split(text) {
		assert.LessOrEqual(t, len([]rune(chunk)), 10)
	}
}

func TestNewChunkerClampsOverlap(t *testing.T) {
	c := NewChunker(10, 50)
	assert.Equal(t, 9, c.overlap)

	c = NewChunker(10, -1)
	assert.Equal(t, 0, c.overlap)
}
