// Package pipeline provides ingestion and retrieval pipeline options.
package pipeline

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/senselib/senselib/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains pipeline configuration.
type Options struct {
	// Collection is the default vector collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingChunkSize is the chunk size (in runes) used for indexing.
	EmbeddingChunkSize int `json:"embedding-chunk-size" mapstructure:"embedding-chunk-size"`

	// EmbeddingChunkOverlap is the overlap for indexing chunks.
	EmbeddingChunkOverlap int `json:"embedding-chunk-overlap" mapstructure:"embedding-chunk-overlap"`

	// SummaryChunkSize is the chunk size used for summarization.
	SummaryChunkSize int `json:"summary-chunk-size" mapstructure:"summary-chunk-size"`

	// SummaryChunkOverlap is the overlap for summarization chunks.
	SummaryChunkOverlap int `json:"summary-chunk-overlap" mapstructure:"summary-chunk-overlap"`

	// TopK is the default number of retrieval results.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ScoreThreshold drops similarity matches below this value.
	ScoreThreshold float64 `json:"score-threshold" mapstructure:"score-threshold"`

	// BatchSize is the vector store upsert batch size.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`

	// BatchEmbedding embeds chunks per batch instead of one by one.
	// Individual embedding isolates which chunk fails and is the default.
	BatchEmbedding bool `json:"batch-embedding" mapstructure:"batch-embedding"`

	// SummaryConcurrency bounds simultaneous summarization calls across
	// the primary and fallback passes together.
	SummaryConcurrency int `json:"summary-concurrency" mapstructure:"summary-concurrency"`

	// SummaryMaxTokens caps the final composed summary length.
	SummaryMaxTokens int `json:"summary-max-tokens" mapstructure:"summary-max-tokens"`

	// SummaryLanguage is the language all summaries are produced in,
	// regardless of the source document language.
	SummaryLanguage string `json:"summary-language" mapstructure:"summary-language"`

	// CacheEnabled enables the redis query result cache.
	CacheEnabled bool `json:"cache-enabled" mapstructure:"cache-enabled"`

	// CacheTTL is the query cache expiry.
	CacheTTL time.Duration `json:"cache-ttl" mapstructure:"cache-ttl"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Collection:            "senselib",
		EmbeddingChunkSize:    512,
		EmbeddingChunkOverlap: 128,
		SummaryChunkSize:      4000,
		SummaryChunkOverlap:   200,
		TopK:                  5,
		ScoreThreshold:        0.3,
		BatchSize:             64,
		BatchEmbedding:        false,
		SummaryConcurrency:    5,
		SummaryMaxTokens:      1000,
		SummaryLanguage:       "Vietnamese",
		CacheEnabled:          false,
		CacheTTL:              time.Hour,
	}
}

// AddFlags adds flags for pipeline options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.Collection, join+"collection", o.Collection, "Default vector collection name.")
	fs.IntVar(&o.EmbeddingChunkSize, join+"embedding-chunk-size", o.EmbeddingChunkSize, "Chunk size for indexing.")
	fs.IntVar(&o.EmbeddingChunkOverlap, join+"embedding-chunk-overlap", o.EmbeddingChunkOverlap, "Chunk overlap for indexing.")
	fs.IntVar(&o.SummaryChunkSize, join+"summary-chunk-size", o.SummaryChunkSize, "Chunk size for summarization.")
	fs.IntVar(&o.SummaryChunkOverlap, join+"summary-chunk-overlap", o.SummaryChunkOverlap, "Chunk overlap for summarization.")
	fs.IntVar(&o.TopK, join+"top-k", o.TopK, "Default number of retrieval results.")
	fs.Float64Var(&o.ScoreThreshold, join+"score-threshold", o.ScoreThreshold, "Minimum similarity score for matches.")
	fs.IntVar(&o.BatchSize, join+"batch-size", o.BatchSize, "Vector store upsert batch size.")
	fs.BoolVar(&o.BatchEmbedding, join+"batch-embedding", o.BatchEmbedding, "Embed chunks per batch instead of individually.")
	fs.IntVar(&o.SummaryConcurrency, join+"summary-concurrency", o.SummaryConcurrency, "Maximum concurrent summarization calls.")
	fs.IntVar(&o.SummaryMaxTokens, join+"summary-max-tokens", o.SummaryMaxTokens, "Token cap for the final composed summary.")
	fs.StringVar(&o.SummaryLanguage, join+"summary-language", o.SummaryLanguage, "Target language for generated summaries.")
	fs.BoolVar(&o.CacheEnabled, join+"cache-enabled", o.CacheEnabled, "Enable the redis query result cache.")
	fs.DurationVar(&o.CacheTTL, join+"cache-ttl", o.CacheTTL, "Query cache TTL.")
}

// Validate validates the pipeline options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("collection is required"))
	}
	if o.EmbeddingChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding-chunk-size must be positive"))
	}
	if o.EmbeddingChunkOverlap < 0 || o.EmbeddingChunkOverlap >= o.EmbeddingChunkSize {
		errs = append(errs, fmt.Errorf("embedding-chunk-overlap must be in [0, chunk size)"))
	}
	if o.SummaryChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("summary-chunk-size must be positive"))
	}
	if o.SummaryChunkOverlap < 0 || o.SummaryChunkOverlap >= o.SummaryChunkSize {
		errs = append(errs, fmt.Errorf("summary-chunk-overlap must be in [0, chunk size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.SummaryConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("summary-concurrency must be positive"))
	}
	return errs
}

// Complete completes the pipeline options with defaults.
func (o *Options) Complete() error {
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	return nil
}
