package senselib

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/senselib/senselib/internal/extract"
	"github.com/senselib/senselib/internal/index"
	"github.com/senselib/senselib/internal/pipeline"
	"github.com/senselib/senselib/internal/store"
	"github.com/senselib/senselib/pkg/component/milvus"
	"github.com/senselib/senselib/pkg/infra/pool"
	"github.com/senselib/senselib/pkg/llm/openai"
	"github.com/senselib/senselib/pkg/llm/reranker"
	"github.com/senselib/senselib/pkg/llm/resilience"
	llmopts "github.com/senselib/senselib/pkg/options/llm"
)

// Config is the completed runtime configuration.
type Config struct {
	*Options
}

// NewService wires the full pipeline service: vector store, document
// catalog, LLM connections, reranker, worker pool and caches. The
// returned cleanup releases every acquired resource.
func (c *Config) NewService(ctx context.Context) (*pipeline.Service, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	milvusClient, err := milvus.New(c.Milvus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}
	cleanups = append(cleanups, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := milvusClient.Close(closeCtx); err != nil {
			logger.Warnw("Failed to close milvus client", "error", err.Error())
		}
	})

	documentStore, err := store.New(c.Database)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open document catalog: %w", err)
	}
	cleanups = append(cleanups, func() {
		if err := documentStore.Close(); err != nil {
			logger.Warnw("Failed to close document catalog", "error", err.Error())
		}
	})

	embeddingProvider, err := openai.New(embeddingConfig(c.Embedding))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	// The summarization path carries its own retry policy; the embedding
	// path relies on this wrapper for transient failures.
	embedder := resilience.NewResilientEmbeddingProvider(embeddingProvider, nil, nil)

	rerankClient, err := reranker.New(&reranker.Config{
		BaseURL:    c.Reranker.BaseURL,
		Model:      c.Reranker.Model,
		Timeout:    c.Reranker.Timeout,
		MaxRetries: c.Reranker.MaxRetries,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create reranker client: %w", err)
	}

	collectionCache := index.NewCollectionCache(milvusClient)
	embeddingIndex := index.NewEmbeddingIndex(
		milvusClient,
		embedder,
		collectionCache,
		c.Pipeline.Collection,
		c.Pipeline.BatchEmbedding,
	)

	retriever := pipeline.NewRetriever(
		map[string]index.VectorIndex{c.Pipeline.Collection: embeddingIndex},
		embedder,
		rerankClient,
	)

	summarizer, workers, err := c.newSummaryPipeline()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, workers.Release)

	queryCache, redisCleanup := c.newQueryCache(ctx)
	if redisCleanup != nil {
		cleanups = append(cleanups, redisCleanup)
	}

	svc := pipeline.NewService(
		c.newProcessor(),
		embeddingIndex,
		retriever,
		summarizer,
		pipeline.NewQueryPreprocessor(nil, nil),
		documentStore,
		queryCache,
		store.NewReconciler(documentStore, milvusClient),
		&pipeline.ServiceConfig{
			Collection:     c.Pipeline.Collection,
			TopK:           c.Pipeline.TopK,
			ScoreThreshold: c.Pipeline.ScoreThreshold,
			BatchSize:      c.Pipeline.BatchSize,
		},
	)
	return svc, cleanup, nil
}

// NewSummarizer builds the summarization pipeline alone, without the
// vector store or the catalog. Used by commands that only summarize.
func (c *Config) NewSummarizer() (*pipeline.SummaryPipeline, *extract.Extractor, func(), error) {
	summarizer, workers, err := c.newSummaryPipeline()
	if err != nil {
		return nil, nil, nil, err
	}
	return summarizer, extract.NewExtractor(), workers.Release, nil
}

func (c *Config) newProcessor() *pipeline.Processor {
	return pipeline.NewProcessor(
		extract.NewExtractor(),
		pipeline.NewStructureDetector(),
		pipeline.NewChunker(c.Pipeline.EmbeddingChunkSize, c.Pipeline.EmbeddingChunkOverlap),
	)
}

func (c *Config) newSummaryPipeline() (*pipeline.SummaryPipeline, *pool.Pool, error) {
	summaryProvider, err := openai.New(completionConfig(c.Summarizer))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create summarizer provider: %w", err)
	}

	// The composer gets its own connection so its single large request
	// never competes with chunk-level traffic.
	composerProvider, err := openai.New(completionConfig(c.Composer))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create composer provider: %w", err)
	}

	workers, err := pool.New("summary", pool.SummaryPoolConfig(c.Pipeline.SummaryConcurrency))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create summary worker pool: %w", err)
	}

	summaryConfig := pipeline.DefaultSummaryConfig()
	summaryConfig.Language = c.Pipeline.SummaryLanguage
	summaryConfig.MaxTokens = c.Pipeline.SummaryMaxTokens

	summarizer := pipeline.NewSummaryPipeline(
		summaryProvider,
		composerProvider,
		pipeline.NewChunker(c.Pipeline.SummaryChunkSize, c.Pipeline.SummaryChunkOverlap),
		workers,
		summaryConfig,
	)
	return summarizer, workers, nil
}

func (c *Config) newQueryCache(ctx context.Context) (*pipeline.QueryCache, func()) {
	if !c.Pipeline.CacheEnabled {
		return pipeline.NewQueryCache(nil, nil), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port),
		Password:     c.Redis.Password,
		DB:           c.Redis.Database,
		MaxRetries:   c.Redis.MaxRetries,
		PoolSize:     c.Redis.PoolSize,
		MinIdleConns: c.Redis.MinIdleConns,
		DialTimeout:  c.Redis.DialTimeout,
		ReadTimeout:  c.Redis.ReadTimeout,
		WriteTimeout: c.Redis.WriteTimeout,
		PoolTimeout:  c.Redis.PoolTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		// Caching is best effort; the service answers queries without it.
		logger.Warnw("Redis unreachable, query cache disabled", "error", err.Error())
		_ = client.Close()
		return pipeline.NewQueryCache(nil, nil), nil
	}

	cache := pipeline.NewQueryCache(client, &pipeline.QueryCacheConfig{
		Enabled: true,
		TTL:     c.Pipeline.CacheTTL,
	})
	return cache, func() {
		if err := client.Close(); err != nil {
			logger.Warnw("Failed to close redis client", "error", err.Error())
		}
	}
}

func embeddingConfig(o *llmopts.ProviderOptions) *openai.Config {
	cfg := completionConfig(o)
	cfg.EmbedModel = o.Model
	cfg.EmbedDimension = o.EmbedDimension
	return cfg
}

func completionConfig(o *llmopts.ProviderOptions) *openai.Config {
	return &openai.Config{
		BaseURL:    o.BaseURL,
		APIKey:     o.APIKey,
		ChatModel:  o.Model,
		Timeout:    o.Timeout,
		MaxRetries: o.MaxRetries,
		MaxConns:   o.MaxConns,
	}
}
