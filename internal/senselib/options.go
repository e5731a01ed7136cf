package senselib

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	options "github.com/senselib/senselib/pkg/options/app"
	databaseopts "github.com/senselib/senselib/pkg/options/database"
	llmopts "github.com/senselib/senselib/pkg/options/llm"
	logopts "github.com/senselib/senselib/pkg/options/logger"
	milvusopts "github.com/senselib/senselib/pkg/options/milvus"
	pipelineopts "github.com/senselib/senselib/pkg/options/pipeline"
	redisopts "github.com/senselib/senselib/pkg/options/redis"
)

// Options aggregates the configuration for every component of the
// service: storage backends, the three LLM connections, the reranker
// and the pipeline tuning knobs.
type Options struct {
	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Milvus contains vector store configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Redis contains query cache backend configuration.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`

	// Database contains document catalog configuration.
	Database *databaseopts.Options `json:"database" mapstructure:"database"`

	// Embedding configures the embedding connection.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Summarizer configures the chunk summarization connection.
	Summarizer *llmopts.ProviderOptions `json:"summarizer" mapstructure:"summarizer"`

	// Composer configures the final summary composition connection. It
	// runs on a dedicated narrow pool with a much longer timeout.
	Composer *llmopts.ProviderOptions `json:"composer" mapstructure:"composer"`

	// Reranker configures the cross-encoder scoring service.
	Reranker *llmopts.RerankerOptions `json:"reranker" mapstructure:"reranker"`

	// Pipeline contains chunking, retrieval and summarization tuning.
	Pipeline *pipelineopts.Options `json:"pipeline" mapstructure:"pipeline"`
}

// NewOptions creates an Options instance with default values.
func NewOptions() *Options {
	return &Options{
		Log:        logopts.NewOptions(),
		Milvus:     milvusopts.NewOptions(),
		Redis:      redisopts.NewOptions(),
		Database:   databaseopts.NewOptions(),
		Embedding:  llmopts.NewEmbeddingOptions(),
		Summarizer: llmopts.NewCompletionOptions(),
		Composer:   llmopts.NewCompositionOptions(),
		Reranker:   llmopts.NewRerankerOptions(),
		Pipeline:   pipelineopts.NewOptions(),
	}
}

// Flags returns flags grouped by component.
func (o *Options) Flags() (fss options.NamedFlagSets) {
	o.Log.AddFlags(fss.FlagSet("log"))
	o.Milvus.AddFlags(fss.FlagSet("milvus"))
	o.Redis.AddFlags(fss.FlagSet("redis"))
	o.Database.AddFlags(fss.FlagSet("database"), "database.")
	o.Embedding.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.Summarizer.AddFlags(fss.FlagSet("summarizer"), "summarizer.")
	o.Composer.AddFlags(fss.FlagSet("composer"), "composer.")
	o.Reranker.AddFlags(fss.FlagSet("reranker"), "reranker.")
	o.Pipeline.AddFlags(fss.FlagSet("pipeline"), "pipeline.")
	return fss
}

// Complete completes all the required options.
func (o *Options) Complete() error {
	if err := o.Database.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	if err := o.Summarizer.Complete(); err != nil {
		return err
	}
	if err := o.Composer.Complete(); err != nil {
		return err
	}
	return o.Pipeline.Complete()
}

// Validate checks whether the options are valid.
func (o *Options) Validate() error {
	errs := []error{}

	errs = append(errs, o.Log.Validate())
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Redis.Validate())
	errs = append(errs, o.Database.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Summarizer.Validate()...)
	errs = append(errs, o.Composer.Validate()...)
	errs = append(errs, o.Reranker.Validate()...)
	errs = append(errs, o.Pipeline.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a Config from the validated options.
func (o *Options) Config() (*Config, error) {
	return &Config{Options: o}, nil
}
