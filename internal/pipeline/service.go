package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/senselib/senselib/internal/extract"
	"github.com/senselib/senselib/internal/index"
	"github.com/senselib/senselib/internal/model"
	"github.com/senselib/senselib/internal/store"
	"github.com/senselib/senselib/pkg/utils/id"
)

// ServiceConfig holds the retrieval defaults applied when a caller does
// not override them.
type ServiceConfig struct {
	// Collection is the default vector collection.
	Collection string
	// TopK is the default result count for single-collection retrieval.
	TopK int
	// ScoreThreshold drops similarity matches below this value before
	// reranking.
	ScoreThreshold float64
	// BatchSize is the upsert batch size during ingestion.
	BatchSize int
}

// DefaultServiceConfig returns the default service configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Collection:     "senselib",
		TopK:           5,
		ScoreThreshold: 0.3,
		BatchSize:      64,
	}
}

// Service is the pipeline facade: document ingestion, query answering
// and catalog maintenance. The relational catalog tracks document
// status; the vector index holds derived chunk data only.
type Service struct {
	processor    *Processor
	index        index.VectorIndex
	retriever    *Retriever
	summarizer   *SummaryPipeline
	preprocessor *QueryPreprocessor
	store        *store.DocumentStore
	cache        *QueryCache
	reconciler   *store.Reconciler
	ids          *id.ULIDGenerator
	config       *ServiceConfig
}

// NewService creates the pipeline service. The cache and reconciler may
// be nil when the deployment runs without redis or without maintenance
// tooling.
func NewService(
	processor *Processor,
	idx index.VectorIndex,
	retriever *Retriever,
	summarizer *SummaryPipeline,
	preprocessor *QueryPreprocessor,
	documentStore *store.DocumentStore,
	cache *QueryCache,
	reconciler *store.Reconciler,
	config *ServiceConfig,
) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if cache == nil {
		cache = NewQueryCache(nil, nil)
	}
	return &Service{
		processor:    processor,
		index:        idx,
		retriever:    retriever,
		summarizer:   summarizer,
		preprocessor: preprocessor,
		store:        documentStore,
		cache:        cache,
		reconciler:   reconciler,
		ids:          id.NewULIDGenerator(),
		config:       config,
	}
}

// IngestFile processes and indexes one document file. The document
// enters the catalog as pending, moves to processing while chunks are
// embedded and upserted, and ends available. Any failure after the
// catalog entry exists marks the document rejected; rejected is
// terminal and distinguishable from a document that was never seen.
func (s *Service) IngestFile(ctx context.Context, path string) (*model.Document, error) {
	processed, err := s.processor.ProcessFile(path)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		ID:       s.ids.Generate(),
		Title:    processed.Title,
		Source:   processed.Source,
		FileHash: processed.ContentHash,
		Status:   model.StatusPending,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.indexDocument(ctx, doc, processed); err != nil {
		if stErr := s.store.UpdateStatus(ctx, doc.ID, model.StatusRejected); stErr != nil {
			logger.Errorw("Failed to mark document rejected",
				"document_id", doc.ID,
				"error", stErr.Error(),
			)
		}
		doc.Status = model.StatusRejected
		return doc, fmt.Errorf("failed to ingest %s: %w", processed.Title, err)
	}

	doc.Status = model.StatusAvailable
	doc.ChunkNum = len(processed.Chunks)
	logger.Infow("Document ingested",
		"document_id", doc.ID,
		"title", doc.Title,
		"chunks", doc.ChunkNum,
		"chapters", len(processed.Structure.Chapters),
		"sections", len(processed.Structure.Sections),
	)
	return doc, nil
}

func (s *Service) indexDocument(ctx context.Context, doc *model.Document, processed *ProcessedDocument) error {
	if err := s.store.UpdateStatus(ctx, doc.ID, model.StatusProcessing); err != nil {
		return err
	}

	if err := s.index.EnsureReady(ctx); err != nil {
		return err
	}
	if err := s.index.Store(ctx, processed.Chunks, processed.Metadata, s.config.BatchSize); err != nil {
		return err
	}

	if err := s.store.AttachStructure(ctx, processed.ContentHash, processed.Structure.Chapters, processed.Structure.Sections); err != nil {
		return err
	}
	if err := s.store.SetChunkCount(ctx, doc.ID, len(processed.Chunks)); err != nil {
		return err
	}
	return s.store.UpdateStatus(ctx, doc.ID, model.StatusAvailable)
}

// IngestDir ingests every supported file in dir, skipping unsupported
// formats and duplicates instead of failing the batch.
func (s *Service) IngestDir(ctx context.Context, paths []string) ([]*model.Document, error) {
	var docs []*model.Document
	for _, path := range paths {
		doc, err := s.IngestFile(ctx, path)
		if err != nil {
			if errors.Is(err, extract.ErrUnsupportedFormat) || errors.Is(err, store.ErrDuplicateDocument) {
				logger.Warnw("Skipping file", "path", path, "reason", err.Error())
				continue
			}
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// CleanQuery normalizes a raw user query for retrieval.
func (s *Service) CleanQuery(query string) string {
	return s.preprocessor.Clean(query)
}

// Retrieve answers a query against the default collection. The cleaned
// query keys the cache; a search failure propagates and is never
// conflated with an empty result.
func (s *Service) Retrieve(ctx context.Context, query string, filters map[string]any, topK int) ([]RetrievalResult, error) {
	if topK <= 0 {
		topK = s.config.TopK
	}
	cleaned := s.preprocessor.Clean(query)

	if len(filters) == 0 {
		if cached, err := s.cache.Get(ctx, cleaned); err == nil && cached != nil {
			return cached, nil
		}
	}

	results, err := s.retriever.Retrieve(ctx, cleaned, s.config.Collection, filters, topK, s.config.ScoreThreshold)
	if err != nil {
		return nil, err
	}

	if len(filters) == 0 && len(results) > 0 {
		if err := s.cache.Set(ctx, cleaned, results); err != nil {
			logger.Warnw("Failed to cache query results", "error", err.Error())
		}
	}
	return results, nil
}

// Query answers a query across several collections with the given merge
// strategy. Multi-collection results bypass the cache; the cache key
// would otherwise have to encode the collection set and strategy.
func (s *Service) Query(ctx context.Context, query string, collections []string, filters map[string]any, topK, topN int, strategy MergeStrategy) ([]RetrievalResult, error) {
	if topK <= 0 {
		topK = s.config.TopK
	}
	if topN <= 0 {
		topN = topK
	}
	cleaned := s.preprocessor.Clean(query)
	return s.retriever.Query(ctx, cleaned, collections, filters, topK, topN, strategy)
}

// Summarize produces a summary of the given text.
func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	return s.summarizer.GenerateSummary(ctx, text)
}

// SummarizeFile extracts a document file and summarizes its content.
func (s *Service) SummarizeFile(ctx context.Context, path string) (string, error) {
	text, err := s.processor.extractor.Extract(path)
	if err != nil {
		return "", err
	}
	return s.summarizer.GenerateSummary(ctx, text)
}

// GetDocument returns a catalog entry with its detected structure.
func (s *Service) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	return s.store.Get(ctx, documentID)
}

// ListDocuments returns catalog entries filtered by status.
func (s *Service) ListDocuments(ctx context.Context, status string) ([]model.Document, error) {
	return s.store.List(ctx, status)
}

// Reconcile diffs the catalog against the vector index and, when purge
// is set, deletes orphaned points.
func (s *Service) Reconcile(ctx context.Context, purge bool) (*store.Report, error) {
	if s.reconciler == nil {
		return nil, errors.New("reconciler not configured")
	}
	report, err := s.reconciler.Reconcile(ctx, s.config.Collection)
	if err != nil {
		return nil, err
	}
	if purge {
		if err := s.reconciler.PurgeOrphans(ctx, s.config.Collection, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// ClearCache removes all cached query results.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	return s.cache.Clear(ctx)
}
