package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString(t *testing.T) {
	h1 := HashString("hello")
	h2 := HashString("hello")
	h3 := HashString("world")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 32)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hel", TruncateString("hello", 3))
	// Truncation counts Unicode characters, not bytes.
	assert.Equal(t, "日本", TruncateString("日本語テキスト", 2))
}
