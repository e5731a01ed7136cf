// Package store persists the document catalog and reconciles it against
// the vector index.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/senselib/senselib/internal/model"
	databaseopts "github.com/senselib/senselib/pkg/options/database"
)

var (
	// ErrDocumentNotFound is returned when no document matches.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDuplicateDocument is returned when a document with the same
	// content hash already exists in the catalog.
	ErrDuplicateDocument = errors.New("document with identical content already exists")
)

// DocumentStore is the relational catalog for documents and their
// detected structure. The catalog owns file hashes and document status;
// the vector index holds derived data only.
type DocumentStore struct {
	db *gorm.DB
}

// New opens the configured database and migrates the catalog schema.
func New(opts *databaseopts.Options) (*DocumentStore, error) {
	if opts == nil {
		return nil, fmt.Errorf("database options is nil")
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case databaseopts.DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case databaseopts.DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL database: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	s := &DocumentStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromDB creates a DocumentStore from an existing GORM DB.
func NewFromDB(db *gorm.DB) (*DocumentStore, error) {
	s := &DocumentStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DocumentStore) migrate() error {
	if err := s.db.AutoMigrate(&model.Document{}, &model.Chapter{}, &model.Section{}); err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *DocumentStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create inserts a new document. A duplicate content hash returns
// ErrDuplicateDocument with the existing document.
func (s *DocumentStore) Create(ctx context.Context, doc *model.Document) error {
	existing, err := s.GetByHash(ctx, doc.FileHash)
	if err != nil && !errors.Is(err, ErrDocumentNotFound) {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateDocument, existing.ID)
	}

	if doc.Status == "" {
		doc.Status = model.StatusPending
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// Get returns the document with the given id, including its structure.
func (s *DocumentStore) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).
		Preload("Chapters").
		Preload("Sections").
		First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetByHash returns the document with the given content hash.
func (s *DocumentStore) GetByHash(ctx context.Context, hash string) (*model.Document, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).First(&doc, "file_hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by hash: %w", err)
	}
	return &doc, nil
}

// List returns documents filtered by status. An empty status returns
// all documents.
func (s *DocumentStore) List(ctx context.Context, status string) ([]model.Document, error) {
	var docs []model.Document
	q := s.db.WithContext(ctx).Order("created_at")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// UpdateStatus moves a document through its status machine.
func (s *DocumentStore) UpdateStatus(ctx context.Context, id, status string) error {
	res := s.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update document status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// SetChunkCount records the number of indexed chunks for a document.
func (s *DocumentStore) SetChunkCount(ctx context.Context, id string, count int) error {
	res := s.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("chunk_num", count)
	if res.Error != nil {
		return fmt.Errorf("failed to update chunk count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// AttachStructure persists detected chapters and sections as immutable
// children of the document identified by its content hash.
func (s *DocumentStore) AttachStructure(ctx context.Context, hash string, chapters []model.Chapter, sections []model.Section) error {
	doc, err := s.GetByHash(ctx, hash)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range chapters {
			chapters[i].DocumentID = doc.ID
		}
		for i := range sections {
			sections[i].DocumentID = doc.ID
		}
		if len(chapters) > 0 {
			if err := tx.Create(&chapters).Error; err != nil {
				return fmt.Errorf("failed to persist chapters: %w", err)
			}
		}
		if len(sections) > 0 {
			if err := tx.Create(&sections).Error; err != nil {
				return fmt.Errorf("failed to persist sections: %w", err)
			}
		}
		return nil
	})
}
