package reranker_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senselib/senselib/pkg/llm"
	"github.com/senselib/senselib/pkg/llm/reranker"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *reranker.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := reranker.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 0

	c, err := reranker.New(cfg)
	require.NoError(t, err)
	return c
}

func TestRerank_ScoresInInputOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"query":"library hours"`)
		// Scores come back sorted by relevance, keyed by input index.
		_, _ = w.Write([]byte(`[{"index":1,"score":0.95},{"index":0,"score":0.12}]`))
	})

	scores, err := c.Rerank(context.Background(), "library hours", []string{"unrelated text", "opening hours are 9-17"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.InDelta(t, 0.12, scores[0], 1e-9)
	assert.InDelta(t, 0.95, scores[1], 1e-9)
}

func TestRerank_EmptyCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty candidates")
	})

	scores, err := c.Rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestRerank_ScoreCountMismatchIsFatal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"score":0.5}]`))
	})

	_, err := c.Rerank(context.Background(), "query", []string{"a", "b"})
	require.Error(t, err)
	assert.False(t, llm.IsTransient(err))
}

func TestRerank_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Rerank(context.Background(), "query", []string{"a"})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
}
