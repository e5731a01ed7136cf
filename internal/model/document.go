// Package model provides the relational catalog models.
package model

import (
	"time"
)

// Document status machine. A rejected document is terminal and
// distinguishable from one that was never processed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusAvailable  = "available"
	StatusRejected   = "rejected"
)

// Document represents an ingested document in the catalog.
type Document struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Source    string    `json:"source" gorm:"type:varchar(512);not null"` // File path or URL
	FileHash  string    `json:"file_hash" gorm:"type:varchar(64);uniqueIndex"`
	ChunkNum  int       `json:"chunk_num" gorm:"default:0"`
	Status    string    `json:"status" gorm:"type:varchar(32);default:'pending'"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Chapters []Chapter `json:"chapters,omitempty" gorm:"foreignKey:DocumentID"`
	Sections []Section `json:"sections,omitempty" gorm:"foreignKey:DocumentID"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Chapter is a detected chapter span. Positions are fractional document
// offsets in [0, 100]. Spans are written once at ingestion and never
// mutated.
type Chapter struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	DocumentID string    `json:"document_id" gorm:"type:varchar(64);index;not null;uniqueIndex:idx_doc_chapter"`
	Number     int       `json:"number" gorm:"not null;uniqueIndex:idx_doc_chapter"`
	Title      string    `json:"title" gorm:"type:varchar(255)"`
	StartPos   float64   `json:"start_pos" gorm:"default:0"`
	EndPos     float64   `json:"end_pos" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Chapter.
func (Chapter) TableName() string {
	return "chapters"
}

// Section is a detected section span. Numbers are a flat document-wide
// counter, not reset per chapter. ChapterNumber is the chapter open at
// detection time, zero when the section precedes any chapter.
type Section struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	DocumentID    string    `json:"document_id" gorm:"type:varchar(64);index;not null;uniqueIndex:idx_doc_section"`
	Number        int       `json:"number" gorm:"not null;uniqueIndex:idx_doc_section"`
	ChapterNumber int       `json:"chapter_number" gorm:"default:0"`
	Title         string    `json:"title" gorm:"type:varchar(255)"`
	StartPos      float64   `json:"start_pos" gorm:"default:0"`
	EndPos        float64   `json:"end_pos" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Section.
func (Section) TableName() string {
	return "sections"
}
