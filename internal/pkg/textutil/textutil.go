// Package textutil provides text processing helpers shared by the
// ingestion and retrieval pipelines.
package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"unicode/utf8"
)

// HashString returns the hex MD5 digest of s. Used as the content hash
// for duplicate detection and index reconciliation.
func HashString(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString truncates s to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}
