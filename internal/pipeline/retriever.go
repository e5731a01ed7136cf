package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"

	"github.com/senselib/senselib/internal/index"
	"github.com/senselib/senselib/pkg/llm"
)

// MergeStrategy selects how multi-collection results are combined.
type MergeStrategy string

const (
	// MergeByScore sorts the pooled results globally by rerank score.
	MergeByScore MergeStrategy = "score"
	// MergeRoundRobin interleaves collections best-first, so no single
	// collection monopolizes the head of the list even when its scores
	// dominate.
	MergeRoundRobin MergeStrategy = "round_robin"
)

// RetrievalResult is one ranked match. RerankScore is only meaningful
// after the rerank stage has run.
type RetrievalResult struct {
	Text             string         `json:"text"`
	Metadata         map[string]any `json:"metadata"`
	SimilarityScore  float64        `json:"similarity_score"`
	RerankScore      float64        `json:"rerank_score"`
	OriginCollection string         `json:"origin_collection"`
}

// Retriever combines metadata pre-filtering, vector similarity search
// and cross-encoder reranking. Query and document embeddings must come
// from the same model family to be comparable, so the retriever shares
// the index's embedding provider.
type Retriever struct {
	indexes  map[string]index.VectorIndex
	embedder llm.EmbeddingProvider
	reranker llm.Reranker
}

// NewRetriever creates a Retriever over the given named indexes.
func NewRetriever(indexes map[string]index.VectorIndex, embedder llm.EmbeddingProvider, reranker llm.Reranker) *Retriever {
	return &Retriever{
		indexes:  indexes,
		embedder: embedder,
		reranker: reranker,
	}
}

// Retrieve searches one collection: embed the query, over-fetch twice
// the requested amount to give the reranker a meaningful candidate
// pool, rerank, sort and truncate. Zero matches returns an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, queryText, collection string, filters map[string]any, topK int, scoreThreshold float64) ([]RetrievalResult, error) {
	idx, ok := r.indexes[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	vector, err := r.embedder.EmbedSingle(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := idx.Search(ctx, vector, topK*2, scoreThreshold, filters)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []RetrievalResult{}, nil
	}

	results := make([]RetrievalResult, len(matches))
	for i, m := range matches {
		results[i] = RetrievalResult{
			Text:             m.Text,
			Metadata:         m.Metadata,
			SimilarityScore:  m.Score,
			OriginCollection: collection,
		}
	}

	if err := r.rerank(ctx, queryText, results); err != nil {
		return nil, err
	}

	sortByRerankScore(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Query fans out over several collections, pools the per-collection
// results, reranks the pooled set once more and merges.
func (r *Retriever) Query(ctx context.Context, queryText string, collections []string, filters map[string]any, topK, topN int, strategy MergeStrategy) ([]RetrievalResult, error) {
	if len(collections) == 0 {
		return []RetrievalResult{}, nil
	}

	perCollection := make([][]RetrievalResult, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range collections {
		g.Go(func() error {
			results, err := r.Retrieve(gctx, queryText, name, filters, topK, 0)
			if err != nil {
				return fmt.Errorf("collection %q: %w", name, err)
			}
			perCollection[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pooled []RetrievalResult
	for _, results := range perCollection {
		pooled = append(pooled, results...)
	}
	if len(pooled) == 0 {
		return []RetrievalResult{}, nil
	}

	// Per-collection rerank scores are not comparable across pools, so
	// the merged set is scored once more as a whole.
	if err := r.rerank(ctx, queryText, pooled); err != nil {
		return nil, err
	}

	switch strategy {
	case MergeRoundRobin:
		return mergeRoundRobin(pooled, collections, topN), nil
	case MergeByScore, "":
		sortByRerankScore(pooled)
		if len(pooled) > topN {
			pooled = pooled[:topN]
		}
		return pooled, nil
	default:
		return nil, fmt.Errorf("unknown merge strategy %q", strategy)
	}
}

func (r *Retriever) rerank(ctx context.Context, queryText string, results []RetrievalResult) error {
	texts := make([]string, len(results))
	for i := range results {
		texts[i] = results[i].Text
	}

	scores, err := r.reranker.Rerank(ctx, queryText, texts)
	if err != nil {
		return fmt.Errorf("failed to rerank candidates: %w", err)
	}
	if len(scores) != len(results) {
		return fmt.Errorf("reranker returned %d scores for %d candidates", len(scores), len(results))
	}
	for i := range results {
		results[i].RerankScore = scores[i]
	}
	return nil
}

func sortByRerankScore(results []RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RerankScore > results[j].RerankScore
	})
}

// mergeRoundRobin cycles the collections in their given order, draining
// each collection's best-first queue into the output until topN is
// filled or every queue is empty.
func mergeRoundRobin(pooled []RetrievalResult, collections []string, topN int) []RetrievalResult {
	queues := make(map[string][]RetrievalResult, len(collections))
	for _, res := range pooled {
		queues[res.OriginCollection] = append(queues[res.OriginCollection], res)
	}
	for name := range queues {
		sortByRerankScore(queues[name])
	}

	merged := make([]RetrievalResult, 0, topN)
	for len(merged) < topN {
		drained := true
		for _, name := range collections {
			q := queues[name]
			if len(q) == 0 {
				continue
			}
			drained = false
			merged = append(merged, q[0])
			queues[name] = q[1:]
			if len(merged) == topN {
				break
			}
		}
		if drained {
			break
		}
	}

	logger.Debugw("Round-robin merge completed",
		"collections", len(collections),
		"pooled", len(pooled),
		"merged", len(merged),
	)
	return merged
}
