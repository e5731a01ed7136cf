// Package llm defines the provider abstractions used by the pipeline.
// Embedding, completion and reranking may each be served by a different
// backend; callers depend only on these interfaces.
package llm

import "context"

// EmbeddingProvider generates vector embeddings for text.
type EmbeddingProvider interface {
	// Embed generates embeddings for multiple texts in one call.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimensionality.
	Dimension() int

	// Name returns the provider name.
	Name() string
}

// CompletionProvider generates text completions from chat messages.
type CompletionProvider interface {
	// Complete sends messages to the model and returns the completion text.
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)

	// Name returns the provider name.
	Name() string
}

// Reranker scores (query, candidate) pairs with a cross-encoder.
// Scores are comparable only within a single call.
type Reranker interface {
	// Rerank returns one relevance score per candidate, in input order.
	Rerank(ctx context.Context, query string, candidates []string) ([]float64, error)

	// Name returns the reranker name.
	Name() string
}

// CompletionOptions carries per-request generation parameters.
// Zero values fall back to provider defaults.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// Message represents a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
