package index

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/senselib/senselib/pkg/component/milvus"
	"github.com/senselib/senselib/pkg/llm"
)

// Backend is the subset of the milvus client the index needs.
type Backend interface {
	CreateCollection(ctx context.Context, schema *milvus.CollectionSchema) error
	Upsert(ctx context.Context, collectionName string, points []milvus.Point) error
	Search(ctx context.Context, collectionName string, vector []float32, limit int, filterExpr string) ([]milvus.SearchResult, error)
	GetCollectionStats(ctx context.Context, collectionName string) (int64, error)
}

// EmbeddingIndex owns one logical vector collection. Point ids are
// assigned monotonically from the collection's current size, so
// re-storing at the same offset overwrites rather than duplicates.
type EmbeddingIndex struct {
	backend    Backend
	embedder   llm.EmbeddingProvider
	cache      *CollectionCache
	collection string

	// batchEmbedding trades failure isolation for throughput. The
	// individual default pinpoints exactly which chunk an embed
	// failure belongs to.
	batchEmbedding bool
}

var _ VectorIndex = (*EmbeddingIndex)(nil)

// NewEmbeddingIndex creates an index over the named collection.
func NewEmbeddingIndex(backend Backend, embedder llm.EmbeddingProvider, cache *CollectionCache, collection string, batchEmbedding bool) *EmbeddingIndex {
	return &EmbeddingIndex{
		backend:        backend,
		embedder:       embedder,
		cache:          cache,
		collection:     collection,
		batchEmbedding: batchEmbedding,
	}
}

// Collection returns the collection name this index owns.
func (e *EmbeddingIndex) Collection() string {
	return e.collection
}

// EnsureReady creates the collection if absent. Safe to race; the
// creation path re-checks existence in the store.
func (e *EmbeddingIndex) EnsureReady(ctx context.Context) error {
	exists, err := e.cache.Get(ctx, e.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", e.collection, err)
	}
	if exists {
		return nil
	}

	if err := e.backend.CreateCollection(ctx, &milvus.CollectionSchema{
		Name:        e.collection,
		Description: "document chunk embeddings",
		Dimension:   e.embedder.Dimension(),
	}); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", e.collection, err)
	}

	logger.Infow("Vector collection created",
		"collection", e.collection,
		"dimension", e.embedder.Dimension(),
	)
	return nil
}

// Store embeds chunks and upserts them in batches. When metadata is nil
// a synthetic per-chunk payload (position id plus timestamp) is
// generated. Any embed or upsert failure aborts the remaining batches
// and propagates; batches already written remain in the store, so the
// caller must treat a failed Store as unknown partial state.
func (e *EmbeddingIndex) Store(ctx context.Context, chunks []string, metadata []map[string]any, batchSize int) error {
	if len(chunks) == 0 {
		return nil
	}
	if metadata != nil && len(metadata) != len(chunks) {
		return fmt.Errorf("metadata count %d does not match chunk count %d", len(metadata), len(chunks))
	}
	if metadata == nil {
		metadata = syntheticMetadata(len(chunks))
	}
	if batchSize <= 0 {
		batchSize = 64
	}

	base, err := e.backend.GetCollectionStats(ctx, e.collection)
	if err != nil {
		return fmt.Errorf("failed to read collection size: %w", err)
	}

	written := 0
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))

		vectors, err := e.embed(ctx, chunks[start:end])
		if err != nil {
			return fmt.Errorf("failed to embed batch at chunk %d (%d batches already written): %w", start, written, err)
		}

		points := make([]milvus.Point, end-start)
		for i := range points {
			points[i] = milvus.Point{
				ID:       base + int64(start+i),
				Vector:   vectors[i],
				Text:     chunks[start+i],
				Metadata: metadata[start+i],
			}
		}

		if err := e.backend.Upsert(ctx, e.collection, points); err != nil {
			return fmt.Errorf("failed to upsert batch at chunk %d (%d batches already written): %w", start, written, err)
		}
		written++
	}

	logger.Infow("Chunks indexed",
		"collection", e.collection,
		"chunks", len(chunks),
		"batches", written,
		"base_id", base,
	)
	return nil
}

func (e *EmbeddingIndex) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if e.batchEmbedding {
		return e.embedder.Embed(ctx, chunks)
	}

	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		v, err := e.embedder.EmbedSingle(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Search is a pure read: matches above scoreThreshold in the store's
// native similarity order.
func (e *EmbeddingIndex) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]any) ([]Result, error) {
	expr := BuildFilterExpr(filters)

	matches, err := e.backend.Search(ctx, e.collection, vector, limit, expr)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", e.collection, err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if float64(m.Score) < scoreThreshold {
			continue
		}
		results = append(results, Result{
			ID:       m.ID,
			Text:     m.Text,
			Metadata: m.Metadata,
			Score:    float64(m.Score),
		})
	}
	return results, nil
}

func syntheticMetadata(n int) []map[string]any {
	now := time.Now().UTC()
	metadata := make([]map[string]any, n)
	for i := range metadata {
		metadata[i] = map[string]any{
			"id":        fmt.Sprintf("chunk_%d_%d", i, now.Unix()),
			"timestamp": now.Format(time.RFC3339),
		}
	}
	return metadata
}
