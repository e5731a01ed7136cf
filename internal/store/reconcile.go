package store

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/senselib/senselib/internal/model"
	"github.com/senselib/senselib/pkg/component/milvus"
)

// PayloadSource enumerates vector point payloads. Implemented by the
// milvus client.
type PayloadSource interface {
	QueryByFilter(ctx context.Context, collectionName, filterExpr string) ([]milvus.SearchResult, error)
	DeleteByIDs(ctx context.Context, collectionName string, ids []int64) error
}

// Report is the result of diffing the catalog against the vector index.
// The two stores are only eventually consistent; every point payload
// carries the owning document's content hash, which is what the diff
// keys on.
type Report struct {
	// OrphanedPoints are vector point ids whose content hash has no
	// live document in the catalog.
	OrphanedPoints []int64
	// MissingDocuments are available documents with no points at all.
	MissingDocuments []string
	// LivePoints is the number of points owned by live documents.
	LivePoints int
}

// Reconciler diffs the relational catalog against vector index payloads
// and optionally removes orphaned points.
type Reconciler struct {
	store  *DocumentStore
	source PayloadSource
}

// NewReconciler creates a Reconciler.
func NewReconciler(store *DocumentStore, source PayloadSource) *Reconciler {
	return &Reconciler{store: store, source: source}
}

// Reconcile enumerates all point payloads in the collection and diffs
// their content hashes against the catalog. A point is orphaned when
// its hash belongs to no document or to a rejected one.
func (r *Reconciler) Reconcile(ctx context.Context, collection string) (*Report, error) {
	docs, err := r.store.List(ctx, "")
	if err != nil {
		return nil, err
	}

	liveHashes := make(map[string]string, len(docs))
	available := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.Status != model.StatusRejected {
			liveHashes[d.FileHash] = d.ID
		}
		if d.Status == model.StatusAvailable {
			available[d.FileHash] = false
		}
	}

	// Milvus query requires a filter expression; id >= 0 matches every
	// point since ids are non-negative by construction.
	points, err := r.source.QueryByFilter(ctx, collection, "id >= 0")
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate vector points: %w", err)
	}

	report := &Report{}
	for _, p := range points {
		hash, _ := p.Metadata["content_hash"].(string)
		if hash == "" {
			// Pre-hash points cannot be attributed to a document.
			report.OrphanedPoints = append(report.OrphanedPoints, p.ID)
			continue
		}
		if _, ok := liveHashes[hash]; !ok {
			report.OrphanedPoints = append(report.OrphanedPoints, p.ID)
			continue
		}
		report.LivePoints++
		if _, tracked := available[hash]; tracked {
			available[hash] = true
		}
	}

	for hash, seen := range available {
		if !seen {
			report.MissingDocuments = append(report.MissingDocuments, liveHashes[hash])
		}
	}

	logger.Infow("Reconciliation completed",
		"collection", collection,
		"live_points", report.LivePoints,
		"orphaned_points", len(report.OrphanedPoints),
		"missing_documents", len(report.MissingDocuments),
	)

	return report, nil
}

// PurgeOrphans deletes the orphaned points named in a report.
func (r *Reconciler) PurgeOrphans(ctx context.Context, collection string, report *Report) error {
	if len(report.OrphanedPoints) == 0 {
		return nil
	}
	if err := r.source.DeleteByIDs(ctx, collection, report.OrphanedPoints); err != nil {
		return fmt.Errorf("failed to purge orphaned points: %w", err)
	}
	logger.Infow("Purged orphaned vector points",
		"collection", collection,
		"count", len(report.OrphanedPoints),
	)
	return nil
}
