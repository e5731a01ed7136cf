package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/senselib/senselib/pkg/infra/pool"
	"github.com/senselib/senselib/pkg/llm"
	"github.com/senselib/senselib/pkg/llm/resilience"
)

// ErrNoSummaries is returned when every chunk fails both the primary
// and the fallback pass. A partial result composes fine; a total
// failure must not produce an empty summary silently.
var ErrNoSummaries = errors.New("no chunk produced a summary")

// SummaryConfig configures the summarization pipeline.
type SummaryConfig struct {
	// Language is the target language for all summaries, regardless of
	// the source document language.
	Language string
	// MaxTokens caps the final composed summary.
	MaxTokens int
	// Temperature for the LLM calls.
	Temperature float64
	// PrimaryRetry and FallbackRetry control per-call retries. Only
	// transient errors are retried.
	PrimaryRetry  *resilience.RetryConfig
	FallbackRetry *resilience.RetryConfig
}

// DefaultSummaryConfig returns the default configuration.
func DefaultSummaryConfig() *SummaryConfig {
	return &SummaryConfig{
		Language:      "Vietnamese",
		MaxTokens:     1000,
		Temperature:   0.3,
		PrimaryRetry:  resilience.DefaultRetryConfig(),
		FallbackRetry: resilience.FallbackRetryConfig(),
	}
}

// SummaryPipeline summarizes long documents: split into chunks,
// summarize each chunk concurrently under one shared worker pool,
// retry failures with a simplified fallback prompt, then compose the
// surviving summaries into one coherent text.
//
// The composer is a separate provider on a narrow connection with a
// long timeout; the composition call is one large request and must not
// compete with chunk-level traffic for connections.
type SummaryPipeline struct {
	summarizer llm.CompletionProvider
	composer   llm.CompletionProvider
	chunker    *Chunker
	workers    *pool.Pool
	config     *SummaryConfig
}

// NewSummaryPipeline creates a SummaryPipeline. The pool bounds
// aggregate in-flight summarization calls; the primary and fallback
// passes share it, so total concurrency never exceeds its capacity.
func NewSummaryPipeline(summarizer, composer llm.CompletionProvider, chunker *Chunker, workers *pool.Pool, config *SummaryConfig) *SummaryPipeline {
	if config == nil {
		config = DefaultSummaryConfig()
	}
	return &SummaryPipeline{
		summarizer: summarizer,
		composer:   composer,
		chunker:    chunker,
		workers:    workers,
		config:     config,
	}
}

// summaryJob tracks one document's chunk summaries. Every ordinal ends
// up in exactly one of completed or failed after both passes.
type summaryJob struct {
	mu        sync.Mutex
	completed map[int]string
	failed    map[int]error
}

func (j *summaryJob) complete(ordinal int, summary string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completed[ordinal] = summary
	delete(j.failed, ordinal)
}

func (j *summaryJob) fail(ordinal int, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failed[ordinal] = err
}

func (j *summaryJob) failedOrdinals() []int {
	j.mu.Lock()
	defer j.mu.Unlock()
	ordinals := make([]int, 0, len(j.failed))
	for ord := range j.failed {
		ordinals = append(ordinals, ord)
	}
	return ordinals
}

// GenerateSummary produces a coherent summary of text. Chunks that fail
// the primary pass are retried once through the fallback pass with a
// simplified prompt; the final text composes whatever succeeded, in
// original chunk order. Zero successes fails the whole job.
func (p *SummaryPipeline) GenerateSummary(ctx context.Context, text string) (string, error) {
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return "", errors.New("no extractable text to summarize")
	}

	job := &summaryJob{
		completed: make(map[int]string, len(chunks)),
		failed:    make(map[int]error),
	}

	p.runPass(ctx, job, chunks, allOrdinals(len(chunks)), false)

	if failed := job.failedOrdinals(); len(failed) > 0 {
		logger.Warnw("Retrying failed chunks with fallback prompt",
			"failed", len(failed),
			"total", len(chunks),
		)
		p.runPass(ctx, job, chunks, failed, true)
	}

	if len(job.completed) == 0 {
		return "", fmt.Errorf("%w: %d chunks attempted", ErrNoSummaries, len(chunks))
	}
	if failed := job.failedOrdinals(); len(failed) > 0 {
		logger.Warnw("Composing partial summary",
			"completed", len(job.completed),
			"failed", len(failed),
		)
	}

	return p.compose(ctx, chunks, job)
}

// runPass summarizes the given ordinals through the shared worker
// pool. Chunk completion order is unordered; the job map keys results
// by ordinal so composition can restore original order.
func (p *SummaryPipeline) runPass(ctx context.Context, job *summaryJob, chunks []string, ordinals []int, fallback bool) {
	var wg sync.WaitGroup
	for _, ordinal := range ordinals {
		if ctx.Err() != nil {
			// A cancelled caller stops spawning new chunk tasks.
			job.fail(ordinal, ctx.Err())
			continue
		}

		wg.Add(1)
		err := p.workers.Submit(func() {
			defer wg.Done()
			summary, err := p.summarizeChunk(ctx, chunks[ordinal], fallback)
			if err != nil {
				job.fail(ordinal, err)
				logger.Warnw("Chunk summarization failed",
					"ordinal", ordinal,
					"fallback", fallback,
					"error", err.Error(),
				)
				return
			}
			job.complete(ordinal, summary)
		})
		if err != nil {
			wg.Done()
			job.fail(ordinal, err)
		}
	}
	wg.Wait()
}

func (p *SummaryPipeline) summarizeChunk(ctx context.Context, chunk string, fallback bool) (string, error) {
	prompt := p.chunkPrompt(chunk)
	retry := p.config.PrimaryRetry
	if fallback {
		prompt = p.fallbackPrompt(chunk)
		retry = p.config.FallbackRetry
	}

	var summary string
	err := resilience.RetryWithBackoff(ctx, retry, func() error {
		out, err := p.summarizer.Complete(ctx, []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		}, llm.CompletionOptions{Temperature: p.config.Temperature})
		if err != nil {
			return err
		}
		summary = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", llm.Fatal("summarize", 0, errors.New("empty summary returned"))
	}
	return summary, nil
}

// compose concatenates chunk summaries in original order and asks the
// composer for one coherent text.
func (p *SummaryPipeline) compose(ctx context.Context, chunks []string, job *summaryJob) (string, error) {
	parts := make([]string, 0, len(job.completed))
	for ordinal := range chunks {
		if summary, ok := job.completed[ordinal]; ok {
			parts = append(parts, summary)
		}
	}
	combined := strings.Join(parts, "\n\n")

	var final string
	err := resilience.RetryWithBackoff(ctx, p.config.PrimaryRetry, func() error {
		out, err := p.composer.Complete(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: p.composeSystemPrompt()},
			{Role: llm.RoleUser, Content: combined},
		}, llm.CompletionOptions{
			Temperature: p.config.Temperature,
			MaxTokens:   p.config.MaxTokens,
		})
		if err != nil {
			return err
		}
		final = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to compose final summary: %w", err)
	}
	if final == "" {
		return "", fmt.Errorf("composer returned an empty summary")
	}

	logger.Infow("Summary composed",
		"chunks", len(chunks),
		"completed", len(job.completed),
	)
	return final, nil
}

func (p *SummaryPipeline) chunkPrompt(chunk string) string {
	return fmt.Sprintf(
		"Summarize the following passage from a book. Capture the key events, arguments and facts. Write the summary in %s regardless of the passage's language.\n\n%s",
		p.config.Language, chunk,
	)
}

func (p *SummaryPipeline) fallbackPrompt(chunk string) string {
	return fmt.Sprintf("Briefly summarize this text in %s:\n\n%s", p.config.Language, chunk)
}

func (p *SummaryPipeline) composeSystemPrompt() string {
	return fmt.Sprintf(
		"You are given partial summaries of consecutive parts of one document, in order. Combine them into a single coherent summary in %s. Do not add information that is not present.",
		p.config.Language,
	)
}

func allOrdinals(n int) []int {
	ordinals := make([]int, n)
	for i := range ordinals {
		ordinals[i] = i
	}
	return ordinals
}
