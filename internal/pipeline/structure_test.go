package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectChaptersAndSections(t *testing.T) {
	text := strings.Join([]string{
		"Chapter 1: Intro",
		"body text",
		"Section 1: A",
		"more body",
		"Chapter 2: Next",
		"closing body",
	}, "\n")

	s := NewStructureDetector().Detect(text)

	require.Len(t, s.Chapters, 2)
	assert.Equal(t, 1, s.Chapters[0].Number)
	assert.Equal(t, "Intro", s.Chapters[0].Title)
	assert.Equal(t, 2, s.Chapters[1].Number)
	assert.Equal(t, "Next", s.Chapters[1].Title)

	require.Len(t, s.Sections, 1)
	assert.Equal(t, 1, s.Sections[0].Number)
	assert.Equal(t, "A", s.Sections[0].Title)
	assert.Equal(t, 1, s.Sections[0].ChapterNumber)

	// Chapter 1 ends where chapter 2 starts; the last spans run to 100.
	assert.Equal(t, s.Chapters[1].StartPos, s.Chapters[0].EndPos)
	assert.Equal(t, float64(100), s.Chapters[1].EndPos)
	assert.Equal(t, float64(100), s.Sections[0].EndPos)
}

func TestDetectPositionsAreFractional(t *testing.T) {
	// 4 lines, markers on lines 0 and 2: positions 0 and 50.
	text := "Chapter 1: A\nbody\nChapter 2: B\nbody"

	s := NewStructureDetector().Detect(text)

	require.Len(t, s.Chapters, 2)
	assert.InDelta(t, 0, s.Chapters[0].StartPos, 1e-9)
	assert.InDelta(t, 50, s.Chapters[1].StartPos, 1e-9)
	assert.InDelta(t, 50, s.Chapters[0].EndPos, 1e-9)
}

func TestDetectMarkerVariants(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		title string
	}{
		{name: "hash prefix", line: "# Chapter 1: Heading", title: "Heading"},
		{name: "period separator", line: "Chapter 1. Heading", title: "Heading"},
		{name: "no separator", line: "chapter 1 Heading", title: "Heading"},
		{name: "case insensitive", line: "CHAPTER 1: HEADING", title: "HEADING"},
		{name: "no title", line: "Chapter 1", title: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStructureDetector().Detect(tt.line)
			require.Len(t, s.Chapters, 1)
			assert.Equal(t, tt.title, s.Chapters[0].Title)
		})
	}
}

func TestDetectSectionNumberingIsFlat(t *testing.T) {
	text := strings.Join([]string{
		"Chapter 1: One",
		"Section 1: A",
		"Section 2: B",
		"Chapter 2: Two",
		"Section 3: C",
	}, "\n")

	s := NewStructureDetector().Detect(text)

	// Section numbers keep counting across chapter boundaries.
	require.Len(t, s.Sections, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{s.Sections[0].Number, s.Sections[1].Number, s.Sections[2].Number})
	assert.Equal(t, 1, s.Sections[1].ChapterNumber)
	assert.Equal(t, 2, s.Sections[2].ChapterNumber)
}

func TestDetectSectionBeforeAnyChapter(t *testing.T) {
	s := NewStructureDetector().Detect("Section 1: Orphan\nChapter 1: Later")

	require.Len(t, s.Sections, 1)
	assert.Zero(t, s.Sections[0].ChapterNumber)
}

func TestDetectEmptyDocument(t *testing.T) {
	s := NewStructureDetector().Detect("")

	assert.Empty(t, s.Chapters)
	assert.Empty(t, s.Sections)
}

func TestDetectNoMarkers(t *testing.T) {
	s := NewStructureDetector().Detect("just prose\nwith several lines\nand no structure")

	assert.Empty(t, s.Chapters)
	assert.Empty(t, s.Sections)
}

func TestDetectIgnoresInlineMentions(t *testing.T) {
	// "Chapter" mid-sentence is body text, not a marker.
	s := NewStructureDetector().Detect("As discussed in Chapter 3, the plot thickens.")

	assert.Empty(t, s.Chapters)
}
