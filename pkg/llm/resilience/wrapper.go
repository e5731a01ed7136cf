package resilience

import (
	"context"

	"github.com/senselib/senselib/pkg/llm"
)

// ResilientEmbeddingProvider wraps an EmbeddingProvider with retry and
// circuit breaking. Only typed transient errors are retried.
type ResilientEmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// NewResilientEmbeddingProvider wraps provider. Nil configs use defaults.
func NewResilientEmbeddingProvider(
	provider llm.EmbeddingProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientEmbeddingProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	return &ResilientEmbeddingProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       NewCircuitBreaker(cbConfig),
	}
}

// Embed generates embeddings for multiple texts with retry and circuit breaking.
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var callErr error
		result, callErr = r.provider.Embed(ctx, texts)
		return callErr
	})
	return result, err
}

// EmbedSingle generates an embedding for one text with retry and circuit breaking.
func (r *ResilientEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var callErr error
		result, callErr = r.provider.EmbedSingle(ctx, text)
		return callErr
	})
	return result, err
}

// Dimension returns the wrapped provider's embedding dimensionality.
func (r *ResilientEmbeddingProvider) Dimension() int {
	return r.provider.Dimension()
}

// Name returns the provider name.
func (r *ResilientEmbeddingProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker exposes the breaker for monitoring.
func (r *ResilientEmbeddingProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// ResilientCompletionProvider wraps a CompletionProvider with retry and
// circuit breaking.
type ResilientCompletionProvider struct {
	provider llm.CompletionProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// NewResilientCompletionProvider wraps provider. Nil configs use defaults.
func NewResilientCompletionProvider(
	provider llm.CompletionProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientCompletionProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	return &ResilientCompletionProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       NewCircuitBreaker(cbConfig),
	}
}

// Complete generates a completion with retry and circuit breaking.
func (r *ResilientCompletionProvider) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	var result string
	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var callErr error
		result, callErr = r.provider.Complete(ctx, messages, opts)
		return callErr
	})
	return result, err
}

// Name returns the provider name.
func (r *ResilientCompletionProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker exposes the breaker for monitoring.
func (r *ResilientCompletionProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}
