package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"

	"github.com/senselib/senselib/internal/extract"
	"github.com/senselib/senselib/internal/pkg/textutil"
)

// ErrNoContent is returned when a file yields no extractable text.
var ErrNoContent = errors.New("document has no extractable text")

// ProcessedDocument is the output of file processing: the raw text, its
// embedding-sized chunks with per-chunk metadata, and the detected
// structure. The content hash keys duplicate detection and index
// reconciliation.
type ProcessedDocument struct {
	Title       string
	Source      string
	ContentType string
	ContentHash string
	Text        string
	Chunks      []string
	Metadata    []map[string]any
	Structure   *Structure
}

// Processor turns a document file into indexable chunks. Extraction,
// structure detection and chunking are all deterministic, so processing
// the same file twice yields identical output.
type Processor struct {
	extractor *extract.Extractor
	detector  *StructureDetector
	chunker   *Chunker
}

// NewProcessor creates a Processor. The chunker should use the
// embedding chunk configuration.
func NewProcessor(extractor *extract.Extractor, detector *StructureDetector, chunker *Chunker) *Processor {
	return &Processor{
		extractor: extractor,
		detector:  detector,
		chunker:   chunker,
	}
}

// ProcessFile extracts, analyzes and chunks the file at path. An
// unsupported extension returns extract.ErrUnsupportedFormat so batch
// callers can log and skip; a supported file with no text returns
// ErrNoContent.
func (p *Processor) ProcessFile(path string) (*ProcessedDocument, error) {
	text, err := p.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filepath.Base(path), err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	doc, err := p.process(text, documentTitle(path), path, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// ProcessText processes already-extracted text under the given title
// and source label.
func (p *Processor) ProcessText(text, title, source string) (*ProcessedDocument, error) {
	return p.process(text, title, source, ".txt")
}

func (p *Processor) process(text, title, source, ext string) (*ProcessedDocument, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoContent
	}

	doc := &ProcessedDocument{
		Title:       title,
		Source:      source,
		ContentType: strings.TrimPrefix(ext, "."),
		ContentHash: textutil.HashString(text),
		Text:        text,
		Structure:   p.detector.Detect(text),
	}

	doc.Chunks = p.chunker.Split(text)
	if len(doc.Chunks) == 0 {
		return nil, ErrNoContent
	}

	doc.Metadata = make([]map[string]any, len(doc.Chunks))
	for i, chunk := range doc.Chunks {
		doc.Metadata[i] = map[string]any{
			"title":        doc.Title,
			"source":       doc.Source,
			"content_type": doc.ContentType,
			"content_hash": doc.ContentHash,
			"chunk_index":  i,
			"total_chunks": len(doc.Chunks),
			"chunk_hash":   textutil.HashString(chunk),
		}
	}

	logger.Debugw("Document processed",
		"title", doc.Title,
		"chunks", len(doc.Chunks),
		"chapters", len(doc.Structure.Chapters),
		"sections", len(doc.Structure.Sections),
	)
	return doc, nil
}

// documentTitle derives a human-readable title from the file name,
// capped to the catalog's column width.
func documentTitle(path string) string {
	base := filepath.Base(path)
	return textutil.TruncateString(strings.TrimSuffix(base, filepath.Ext(base)), 255)
}
