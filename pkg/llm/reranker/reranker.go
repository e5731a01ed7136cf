// Package reranker implements llm.Reranker against an HTTP cross-encoder
// scoring service (text-embeddings-inference compatible /rerank endpoint).
package reranker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/senselib/senselib/pkg/llm"
	"github.com/senselib/senselib/pkg/utils/httpclient"
	"github.com/senselib/senselib/pkg/utils/json"
)

// Config holds reranker client configuration.
type Config struct {
	// BaseURL is the scoring service address.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// Model is the cross-encoder model name, if the service hosts several.
	Model string `json:"model" mapstructure:"model"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the transport-level retry count for 5xx responses.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:8085",
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}

// Client scores (query, candidate) pairs through the remote cross-encoder.
type Client struct {
	config *Config
	client *httpclient.Client
}

var _ llm.Reranker = (*Client)(nil)

// New creates a reranker client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("reranker: base_url is required")
	}
	return &Client{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}, nil
}

// Name returns the reranker name.
func (c *Client) Name() string {
	return "cross-encoder"
}

type rerankRequest struct {
	Model string   `json:"model,omitempty"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResponse []struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rerank returns one relevance score per candidate, in input order.
func (c *Client) Rerank(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Model: c.config.Model,
		Query: query,
		Texts: candidates,
	})
	if err != nil {
		return nil, llm.Fatal("rerank", 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, llm.Fatal("rerank", 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	var resp rerankResponse
	if err := c.client.DoJSON(req, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return nil, llm.ClassifyStatus("rerank", statusErr.StatusCode, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, llm.Transient("rerank", 0, err)
	}

	if len(resp) != len(candidates) {
		return nil, llm.Fatal("rerank", 0, fmt.Errorf("expected %d scores, got %d", len(candidates), len(resp)))
	}

	scores := make([]float64, len(candidates))
	for _, r := range resp {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, llm.Fatal("rerank", 0, fmt.Errorf("score index %d out of range", r.Index))
		}
		scores[r.Index] = r.Score
	}

	return scores, nil
}
