// Package senselib assembles the digital library service: document
// ingestion, semantic retrieval, summarization and catalog maintenance.
package senselib

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/senselib/senselib/internal/pipeline"
	"github.com/senselib/senselib/pkg/infra/app"
)

const (
	appName        = "senselib"
	appDescription = `SenseLib digital library service

Ingests documents into a searchable knowledge base and answers
questions against it:
  - Text extraction from PDF, DOCX, ODT, RTF and plain text
  - Chapter and section structure detection
  - Vector indexing with metadata filtering and cross-encoder reranking
  - Multi-collection retrieval with score or round-robin merging
  - Concurrent chunk summarization with fallback retries`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithSubCommands(
			newIngestCommand(opts),
			newQueryCommand(opts),
			newSummarizeCommand(opts),
			newDocumentsCommand(opts),
			newReconcileCommand(opts),
			newCacheClearCommand(opts),
		),
	)
}

// setup initializes logging and returns the runtime config and a signal
// context. Every subcommand goes through it.
func setup(opts *Options) (*Config, context.Context, error) {
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := opts.Config()
	if err != nil {
		return nil, nil, err
	}
	return cfg, setupSignalContext(), nil
}

// setupSignalContext returns a context cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}

func newIngestCommand(opts *Options) *app.SubCommand {
	return &app.SubCommand{
		Use:   "ingest <file>...",
		Short: "Ingest document files into the library",
		Args:  cobra.MinimumNArgs(1),
		Run: func(args []string) error {
			cfg, ctx, err := setup(opts)
			if err != nil {
				return err
			}
			svc, cleanup, err := cfg.NewService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			docs, err := svc.IngestDir(ctx, args)
			for _, doc := range docs {
				fmt.Printf("%s  %-12s %s (%d chunks)\n", doc.ID, doc.Status, doc.Title, doc.ChunkNum)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d of %d files\n", len(docs), len(args))
			return nil
		},
	}
}

func newQueryCommand(opts *Options) *app.SubCommand {
	var (
		collections []string
		filters     []string
		topK        int
		topN        int
		strategy    string
	)

	return &app.SubCommand{
		Use:   "query <question>...",
		Short: "Answer a question against the library",
		Args:  cobra.MinimumNArgs(1),
		Flags: func(fs *pflag.FlagSet) {
			fs.StringSliceVar(&collections, "collections", nil, "Collections to search; empty searches the default collection.")
			fs.StringArrayVar(&filters, "filter", nil, "Metadata filter as key=value; repeatable.")
			fs.IntVar(&topK, "top-k", 0, "Results per collection (0 = configured default).")
			fs.IntVar(&topN, "top-n", 0, "Merged result count for multi-collection queries.")
			fs.StringVar(&strategy, "merge-strategy", string(pipeline.MergeByScore), "Multi-collection merge strategy: score or round_robin.")
		},
		Run: func(args []string) error {
			cfg, ctx, err := setup(opts)
			if err != nil {
				return err
			}
			svc, cleanup, err := cfg.NewService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			filterMap, err := parseFilters(filters)
			if err != nil {
				return err
			}

			question := strings.Join(args, " ")
			var results []pipeline.RetrievalResult
			if len(collections) > 0 {
				results, err = svc.Query(ctx, question, collections, filterMap, topK, topN, pipeline.MergeStrategy(strategy))
			} else {
				results, err = svc.Retrieve(ctx, question, filterMap, topK)
			}
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("No matches found.")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%d. [%.4f] %s\n", i+1, r.RerankScore, r.Text)
			}
			return nil
		},
	}
}

func newSummarizeCommand(opts *Options) *app.SubCommand {
	return &app.SubCommand{
		Use:   "summarize <file>",
		Short: "Summarize a document file",
		Args:  cobra.ExactArgs(1),
		Run: func(args []string) error {
			cfg, ctx, err := setup(opts)
			if err != nil {
				return err
			}
			summarizer, extractor, cleanup, err := cfg.NewSummarizer()
			if err != nil {
				return err
			}
			defer cleanup()

			text, err := extractor.Extract(args[0])
			if err != nil {
				return err
			}
			summary, err := summarizer.GenerateSummary(ctx, text)
			if err != nil {
				return err
			}
			fmt.Println(summary)
			return nil
		},
	}
}

func newDocumentsCommand(opts *Options) *app.SubCommand {
	var status string

	return &app.SubCommand{
		Use:   "documents",
		Short: "List documents in the catalog",
		Args:  cobra.NoArgs,
		Flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&status, "status", "", "Filter by status: pending, processing, available or rejected.")
		},
		Run: func(args []string) error {
			cfg, ctx, err := setup(opts)
			if err != nil {
				return err
			}
			svc, cleanup, err := cfg.NewService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			docs, err := svc.ListDocuments(ctx, status)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				fmt.Printf("%s  %-12s %-40s %d chunks\n", doc.ID, doc.Status, doc.Title, doc.ChunkNum)
			}
			fmt.Printf("%d documents\n", len(docs))
			return nil
		},
	}
}

func newReconcileCommand(opts *Options) *app.SubCommand {
	var purge bool

	return &app.SubCommand{
		Use:   "reconcile",
		Short: "Diff the catalog against the vector index",
		Args:  cobra.NoArgs,
		Flags: func(fs *pflag.FlagSet) {
			fs.BoolVar(&purge, "purge", false, "Delete orphaned vector points.")
		},
		Run: func(args []string) error {
			cfg, ctx, err := setup(opts)
			if err != nil {
				return err
			}
			svc, cleanup, err := cfg.NewService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.Reconcile(ctx, purge)
			if err != nil {
				return err
			}
			fmt.Printf("Live points:       %d\n", report.LivePoints)
			fmt.Printf("Orphaned points:   %d\n", len(report.OrphanedPoints))
			fmt.Printf("Missing documents: %d\n", len(report.MissingDocuments))
			for _, id := range report.MissingDocuments {
				fmt.Printf("  missing: %s\n", id)
			}
			return nil
		},
	}
}

func newCacheClearCommand(opts *Options) *app.SubCommand {
	return &app.SubCommand{
		Use:   "cache-clear",
		Short: "Remove all cached query results",
		Args:  cobra.NoArgs,
		Run: func(args []string) error {
			cfg, ctx, err := setup(opts)
			if err != nil {
				return err
			}
			svc, cleanup, err := cfg.NewService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := svc.ClearCache(ctx)
			if err != nil {
				return err
			}
			logger.Infow("Cache cleared", "deleted", deleted)
			fmt.Printf("Deleted %d cached queries\n", deleted)
			return nil
		},
	}
}

// parseFilters turns key=value pairs into a metadata filter map. Values
// parse as int, float or bool when possible, otherwise string.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		filters[key] = parseFilterValue(value)
	}
	return filters, nil
}

func parseFilterValue(value string) any {
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
