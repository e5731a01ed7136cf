package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senselib/senselib/pkg/infra/pool"
	"github.com/senselib/senselib/pkg/llm"
	"github.com/senselib/senselib/pkg/llm/resilience"
)

// scriptedProvider fails specific prompts a configured number of times.
type scriptedProvider struct {
	mu       sync.Mutex
	failures map[string]int // substring -> remaining failures
	calls    atomic.Int64

	running atomic.Int64
	peak    atomic.Int64
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{failures: map[string]int{}}
}

func (s *scriptedProvider) failOn(substring string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[substring] = times
}

func (s *scriptedProvider) Complete(_ context.Context, messages []llm.Message, _ llm.CompletionOptions) (string, error) {
	s.calls.Add(1)
	cur := s.running.Add(1)
	for {
		old := s.peak.Load()
		if cur <= old || s.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	defer s.running.Add(-1)

	content := messages[len(messages)-1].Content

	s.mu.Lock()
	defer s.mu.Unlock()
	for substring, remaining := range s.failures {
		if remaining > 0 && strings.Contains(content, substring) {
			s.failures[substring] = remaining - 1
			return "", llm.Transient("summarize", 502, assertAnError)
		}
	}
	return "summary(" + firstWords(content) + ")", nil
}

func (s *scriptedProvider) Name() string { return "scripted" }

var assertAnError = &llm.TransientError{Op: "test", StatusCode: 502}

// firstWords extracts a stable token from the chunk so composed output
// can be traced back to its source chunk.
func firstWords(content string) string {
	lines := strings.Split(content, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	fields := strings.Fields(last)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// echoComposer returns the combined input so tests can inspect
// composition order.
type echoComposer struct{}

func (echoComposer) Complete(_ context.Context, messages []llm.Message, _ llm.CompletionOptions) (string, error) {
	return messages[len(messages)-1].Content, nil
}
func (echoComposer) Name() string { return "echo" }

func fastRetries() *SummaryConfig {
	cfg := DefaultSummaryConfig()
	cfg.PrimaryRetry = &resilience.RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		Multiplier:      2,
		RetryableErrors: llm.IsTransient,
	}
	cfg.FallbackRetry = cfg.PrimaryRetry
	return cfg
}

func newTestPipeline(t *testing.T, provider llm.CompletionProvider, concurrency int) *SummaryPipeline {
	t.Helper()
	workers, err := pool.New("summary-test", pool.SummaryPoolConfig(concurrency))
	require.NoError(t, err)
	t.Cleanup(workers.Release)

	// Chunk size 30 so multi-sentence inputs split into several chunks.
	return NewSummaryPipeline(provider, echoComposer{}, NewChunker(30, 0), workers, fastRetries())
}

// fiveChunkText yields five chunks under the test chunker config, each
// starting with a distinct token.
const fiveChunkText = "alpha one two three four five.\n\nbravo one two three four five.\n\ncharlie one two three four.\n\ndelta one two three four five.\n\necho one two three four five."

func TestGenerateSummaryComposesInOriginalOrder(t *testing.T) {
	provider := newScriptedProvider()
	p := newTestPipeline(t, provider, 3)

	out, err := p.GenerateSummary(context.Background(), fiveChunkText)
	require.NoError(t, err)

	// All five chunk summaries appear, in chunk order.
	order := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	lastIdx := -1
	for _, token := range order {
		idx := strings.Index(out, "summary("+token+")")
		require.GreaterOrEqual(t, idx, 0, "missing summary for %s", token)
		assert.Greater(t, idx, lastIdx, "%s out of order", token)
		lastIdx = idx
	}
}

func TestGenerateSummaryPartialFailureRecoversViaFallback(t *testing.T) {
	provider := newScriptedProvider()
	// Fail both retry attempts of the primary pass for two chunks, then
	// succeed on the fallback pass.
	provider.failOn("bravo", 2)
	provider.failOn("delta", 2)
	p := newTestPipeline(t, provider, 2)

	out, err := p.GenerateSummary(context.Background(), fiveChunkText)
	require.NoError(t, err)

	for _, token := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		assert.Contains(t, out, "summary("+token+")")
	}
}

func TestGenerateSummaryTotalFailure(t *testing.T) {
	provider := newScriptedProvider()
	// Every chunk fails primary retries and fallback retries alike.
	for _, token := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		provider.failOn(token, 100)
	}
	p := newTestPipeline(t, provider, 2)

	_, err := p.GenerateSummary(context.Background(), fiveChunkText)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSummaries)
}

func TestGenerateSummaryEmptyText(t *testing.T) {
	p := newTestPipeline(t, newScriptedProvider(), 2)

	_, err := p.GenerateSummary(context.Background(), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractable text")
}

func TestGenerateSummaryConcurrencyBounded(t *testing.T) {
	provider := newScriptedProvider()
	p := newTestPipeline(t, provider, 2)

	_, err := p.GenerateSummary(context.Background(), fiveChunkText)
	require.NoError(t, err)

	assert.LessOrEqual(t, provider.peak.Load(), int64(2))
}

func TestGenerateSummaryFatalErrorNotRetried(t *testing.T) {
	calls := atomic.Int64{}
	provider := completionFunc(func(context.Context, []llm.Message, llm.CompletionOptions) (string, error) {
		calls.Add(1)
		return "", llm.Fatal("summarize", 400, assertAnError)
	})
	workers, err := pool.New("fatal-test", pool.SummaryPoolConfig(2))
	require.NoError(t, err)
	t.Cleanup(workers.Release)

	p := NewSummaryPipeline(provider, echoComposer{}, NewChunker(1000, 0), workers, fastRetries())

	_, err = p.GenerateSummary(context.Background(), "short single chunk text")
	require.Error(t, err)
	// One primary attempt, one fallback attempt, no retries in between.
	assert.Equal(t, int64(2), calls.Load())
}

type completionFunc func(context.Context, []llm.Message, llm.CompletionOptions) (string, error)

func (f completionFunc) Complete(ctx context.Context, m []llm.Message, o llm.CompletionOptions) (string, error) {
	return f(ctx, m, o)
}
func (completionFunc) Name() string { return "func" }
