// Package pipeline implements the ingestion and retrieval pipeline:
// structure detection, chunking, indexing, retrieval, summarization and
// query preprocessing.
package pipeline

import (
	"regexp"
	"strings"

	"github.com/senselib/senselib/internal/model"
)

var (
	chapterMarker = regexp.MustCompile(`(?i)^\s*#*\s*chapter\s+(\d+)\s*[:.]?\s*(.*)$`)
	sectionMarker = regexp.MustCompile(`(?i)^\s*#*\s*section\s+(\d+)\s*[:.]?\s*(.*)$`)
)

// Structure holds the spans detected in one document. Chapters and
// sections are ordered by position; positions are fractional document
// offsets in [0, 100].
type Structure struct {
	Chapters []model.Chapter
	Sections []model.Section
}

// StructureDetector scans plain text for chapter and section markers.
type StructureDetector struct{}

// NewStructureDetector creates a StructureDetector.
func NewStructureDetector() *StructureDetector {
	return &StructureDetector{}
}

// Detect runs a line-oriented scan over the document. A line matching a
// chapter or section marker opens a new span at
// (line index / total lines) x 100; all other lines are body text.
// Section numbers are a flat document-wide counter, deliberately not
// reset at chapter boundaries; each section records the chapter open
// when it was detected (zero if none yet). End positions are backfilled
// afterwards: the next span of the same kind, or 100 for the last one.
// An empty document yields empty spans, not an error.
func (d *StructureDetector) Detect(text string) *Structure {
	s := &Structure{}
	if text == "" {
		return s
	}

	lines := strings.Split(text, "\n")
	total := float64(len(lines))

	chapterNum := 0
	sectionNum := 0

	for i, line := range lines {
		pos := float64(i) / total * 100

		if m := chapterMarker.FindStringSubmatch(line); m != nil {
			chapterNum++
			s.Chapters = append(s.Chapters, model.Chapter{
				Number:   chapterNum,
				Title:    cleanTitle(m[2]),
				StartPos: pos,
			})
			continue
		}

		if m := sectionMarker.FindStringSubmatch(line); m != nil {
			sectionNum++
			s.Sections = append(s.Sections, model.Section{
				Number:        sectionNum,
				ChapterNumber: chapterNum,
				Title:         cleanTitle(m[2]),
				StartPos:      pos,
			})
		}
	}

	for i := range s.Chapters {
		if i+1 < len(s.Chapters) {
			s.Chapters[i].EndPos = s.Chapters[i+1].StartPos
		} else {
			s.Chapters[i].EndPos = 100
		}
	}
	for i := range s.Sections {
		if i+1 < len(s.Sections) {
			s.Sections[i].EndPos = s.Sections[i+1].StartPos
		} else {
			s.Sections[i].EndPos = 100
		}
	}

	return s
}

func cleanTitle(title string) string {
	return strings.TrimSpace(title)
}
