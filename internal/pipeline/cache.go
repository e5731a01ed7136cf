package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/senselib/senselib/pkg/utils/json"
)

// QueryCacheConfig configures the redis query result cache.
type QueryCacheConfig struct {
	// Enabled toggles caching; a disabled cache is a no-op.
	Enabled bool
	// TTL is the cache entry lifetime.
	TTL time.Duration
	// KeyPrefix namespaces cache keys.
	KeyPrefix string
}

// QueryCache caches retrieval results per cleaned query string.
type QueryCache struct {
	redis  *goredis.Client
	config *QueryCacheConfig
}

// NewQueryCache creates a query cache.
func NewQueryCache(redis *goredis.Client, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = &QueryCacheConfig{
			Enabled:   false,
			TTL:       time.Hour,
			KeyPrefix: "senselib:query:",
		}
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "senselib:query:"
	}
	return &QueryCache{
		redis:  redis,
		config: config,
	}
}

func (c *QueryCache) enabled() bool {
	return c.config.Enabled && c.redis != nil
}

func (c *QueryCache) key(query string) string {
	hash := sha256.Sum256([]byte(query))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get returns the cached results for a query, or (nil, nil) on a miss.
// A corrupted entry is deleted and treated as a miss.
func (c *QueryCache) Get(ctx context.Context, query string) ([]RetrievalResult, error) {
	if !c.enabled() {
		return nil, nil
	}

	cacheKey := c.key(query)
	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("Query cache miss", "key", cacheKey)
			return nil, nil
		}
		logger.Warnw("Failed to read query cache", "error", err.Error(), "key", cacheKey)
		return nil, err
	}

	var results []RetrievalResult
	if err := json.Unmarshal(data, &results); err != nil {
		logger.Warnw("Dropping corrupted cache entry", "error", err.Error(), "key", cacheKey)
		_ = c.redis.Del(ctx, cacheKey).Err()
		return nil, nil
	}

	logger.Debugw("Query cache hit", "key", cacheKey, "results", len(results))
	return results, nil
}

// Set stores retrieval results for a query.
func (c *QueryCache) Set(ctx context.Context, query string, results []RetrievalResult) error {
	if !c.enabled() {
		return nil
	}

	data, err := json.Marshal(results)
	if err != nil {
		return err
	}

	cacheKey := c.key(query)
	if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("Failed to write query cache", "error", err.Error(), "key", cacheKey)
		return err
	}
	return nil
}

// Clear removes every cached query result.
func (c *QueryCache) Clear(ctx context.Context) (int, error) {
	if !c.enabled() {
		return 0, nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("Failed to delete cache key", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}

	logger.Infow("Query cache cleared", "deleted", deleted)
	return deleted, nil
}
