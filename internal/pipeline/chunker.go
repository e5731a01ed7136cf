package pipeline

import (
	"regexp"
	"strings"
)

// sentenceEnd matches sentence-final punctuation followed by space.
var sentenceEnd = regexp.MustCompile(`[.!?。！？]+\s+`)

// Chunker splits text into bounded, possibly overlapping windows,
// preferring paragraph and then sentence boundaries before falling back
// to hard character cuts. Sizes count Unicode characters. Splitting is
// fully deterministic.
//
// Two instances serve the pipeline: a small-window one for embedding
// (retrieval precision) and a large-window one for summarization
// (throughput).
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Overlap is clamped into [0, size).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the chunk sequence for text. Empty or whitespace-only
// input yields no chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= c.size {
		return []string{text}
	}

	var chunks []string
	var cur []rune

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, string(cur))
		// Seed the next window with the tail of this one.
		tail := cur[max(0, len(cur)-c.overlap):]
		cur = append([]rune(nil), tail...)
	}

	for _, seg := range c.segments(text) {
		segRunes := []rune(seg)

		if len(cur) > 0 && len(cur)+1+len(segRunes) > c.size {
			flush()
		}
		// The overlap seed alone may already crowd out the segment.
		if len(cur) > 0 && len(cur)+1+len(segRunes) > c.size {
			cur = cur[:0]
		}
		if len(cur) > 0 {
			cur = append(cur, '\n')
		}
		cur = append(cur, segRunes...)
	}
	if len(cur) > 0 {
		chunks = append(chunks, string(cur))
	}

	return chunks
}

// segments breaks text into pieces no longer than the chunk size:
// paragraphs first, oversized paragraphs into sentences, oversized
// sentences into hard cuts.
func (c *Chunker) segments(text string) []string {
	var segs []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len([]rune(para)) <= c.size {
			segs = append(segs, para)
			continue
		}
		for _, sent := range splitSentences(para) {
			if len([]rune(sent)) <= c.size {
				segs = append(segs, sent)
				continue
			}
			segs = append(segs, hardCut(sent, c.size, c.overlap)...)
		}
	}
	return segs
}

// splitSentences cuts text after sentence-final punctuation, keeping
// the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	var out []string
	prev := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[prev:loc[1]]); s != "" {
			out = append(out, s)
		}
		prev = loc[1]
	}
	if rest := strings.TrimSpace(text[prev:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// hardCut slices text into fixed rune windows with the given overlap.
func hardCut(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var out []string
	for i := 0; i < len(runes); i += step {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
