package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*QueryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewQueryCache(client, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "senselib:query:",
	})
	return cache, mr
}

func TestQueryCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	results := []RetrievalResult{
		{Text: "match one", RerankScore: 0.9, OriginCollection: "books"},
		{Text: "match two", RerankScore: 0.4, OriginCollection: "books"},
	}
	require.NoError(t, cache.Set(ctx, "naval history", results))

	got, err := cache.Get(ctx, "naval history")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "match one", got[0].Text)
	assert.InDelta(t, 0.9, got[0].RerankScore, 1e-9)
}

func TestQueryCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), "never cached")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueryCacheCorruptedEntryDropped(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	key := cache.key("broken")
	require.NoError(t, mr.Set(key, "{not json"))

	got, err := cache.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The corrupted entry is deleted so the next read is a clean miss.
	assert.False(t, mr.Exists(key))
}

func TestQueryCacheDisabledIsNoop(t *testing.T) {
	cache := NewQueryCache(nil, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q", []RetrievalResult{{Text: "x"}}))
	got, err := cache.Get(ctx, "q")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueryCacheClear(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "one", []RetrievalResult{{Text: "a"}}))
	require.NoError(t, cache.Set(ctx, "two", []RetrievalResult{{Text: "b"}}))

	deleted, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	got, err := cache.Get(ctx, "one")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueryCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "ephemeral", []RetrievalResult{{Text: "x"}}))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "ephemeral")
	require.NoError(t, err)
	assert.Nil(t, got)
}
