// Package index maintains the vector collection: embedding chunks,
// upserting points and running similarity searches.
package index

import (
	"context"
)

// Result is one similarity match returned by a search.
type Result struct {
	ID       int64
	Text     string
	Metadata map[string]any
	Score    float64
}

// VectorIndex is one logical vector collection.
type VectorIndex interface {
	// Collection returns the collection name this index owns.
	Collection() string

	// EnsureReady creates the collection if absent. Idempotent; fails
	// loudly when the backing store is unreachable.
	EnsureReady(ctx context.Context) error

	// Store embeds the chunks and upserts them in batches. Metadata
	// must be nil or match chunks in length. A failed embed or upsert
	// aborts the remaining batches and propagates; batches already
	// written stay in the store.
	Store(ctx context.Context, chunks []string, metadata []map[string]any, batchSize int) error

	// Search returns payloads above scoreThreshold ordered by the
	// store's native similarity ranking. Zero matches is an empty
	// slice, not an error.
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]any) ([]Result, error)
}
