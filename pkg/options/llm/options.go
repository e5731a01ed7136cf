// Package llm provides LLM backend configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/senselib/senselib/pkg/options"
)

var (
	_ options.IOptions = (*ProviderOptions)(nil)
	_ options.IOptions = (*RerankerOptions)(nil)
)

// ProviderOptions configures an OpenAI-compatible backend endpoint.
// The same struct serves the embedding, summarization and composition
// connections, each with its own flag prefix.
type ProviderOptions struct {
	// BaseURL is the API base address.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey is the API key. Optional for local servers.
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// Model is the model name.
	Model string `json:"model" mapstructure:"model"`

	// EmbedDimension is the embedding dimensionality. Only meaningful
	// for the embedding connection; it must match the vector collection.
	EmbedDimension int `json:"embed-dimension" mapstructure:"embed-dimension"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the transport-level retry count.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// MaxConns bounds the connection pool when positive.
	MaxConns int `json:"max-conns" mapstructure:"max-conns"`
}

// NewEmbeddingOptions returns defaults for the embedding connection.
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		BaseURL:        "http://localhost:11434/v1",
		Model:          "nomic-embed-text",
		EmbedDimension: 768,
		Timeout:        120 * time.Second,
		MaxRetries:     3,
	}
}

// NewCompletionOptions returns defaults for the chunk summarization
// connection.
func NewCompletionOptions() *ProviderOptions {
	return &ProviderOptions{
		BaseURL:    "http://localhost:11434/v1",
		Model:      "gpt-4o-mini",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// NewCompositionOptions returns defaults for the final summary
// composition connection: a single pooled connection with a much longer
// timeout, since it carries one large request.
func NewCompositionOptions() *ProviderOptions {
	return &ProviderOptions{
		BaseURL:    "http://localhost:11434/v1",
		Model:      "gpt-4o-mini",
		Timeout:    20 * time.Minute,
		MaxRetries: 1,
		MaxConns:   1,
	}
}

// AddFlags adds flags for the provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"model", o.Model, "LLM model name.")
	fs.IntVar(&o.EmbedDimension, options.Join(prefixes...)+"embed-dimension", o.EmbedDimension, "Embedding dimensionality.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"max-retries", o.MaxRetries, "LLM maximum number of retries.")
	fs.IntVar(&o.MaxConns, options.Join(prefixes...)+"max-conns", o.MaxConns, "Maximum connections to the backend (0 = unbounded).")
}

// Validate validates the provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}

// Complete completes the provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return nil
}

// RerankerOptions configures the cross-encoder scoring service.
type RerankerOptions struct {
	// BaseURL is the scoring service address.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Model is the cross-encoder model name.
	Model string `json:"model" mapstructure:"model"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the transport-level retry count.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewRerankerOptions returns reranker defaults.
func NewRerankerOptions() *RerankerOptions {
	return &RerankerOptions{
		BaseURL:    "http://localhost:8085",
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}

// AddFlags adds flags for the reranker options to the specified FlagSet.
func (o *RerankerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"base-url", o.BaseURL, "Reranker service base URL.")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"model", o.Model, "Cross-encoder model name.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"timeout", o.Timeout, "Reranker request timeout.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"max-retries", o.MaxRetries, "Reranker maximum number of retries.")
}

// Validate validates the reranker options.
func (o *RerankerOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}
