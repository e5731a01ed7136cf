// Package openai implements the LLM provider interfaces against the
// OpenAI-compatible chat/embeddings API. Works with the official API and
// with compatible servers (vLLM, LocalAI, Azure OpenAI).
package openai

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

// ProviderName identifies this provider.
const ProviderName = "openai"

// Config holds provider configuration.
type Config struct {
	// BaseURL is the API base address. Defaults to the official API;
	// point it at any OpenAI-compatible server.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey is the bearer token. Optional for local servers.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel is the embedding model name.
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// EmbedDimension is the embedding dimensionality. It must match the
	// dimension the vector collection was created with.
	EmbedDimension int `json:"embed_dimension" mapstructure:"embed_dimension"`

	// ChatModel is the completion model name.
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the transport-level retry count for 5xx responses.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// Organization is the optional OpenAI organization ID.
	Organization string `json:"organization" mapstructure:"organization"`

	// MaxConns bounds the connection pool when > 0. The final summary
	// composition provider runs with MaxConns=1 so its single large
	// request cannot compete with chunk-level traffic.
	MaxConns int `json:"max_conns" mapstructure:"max_conns"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://api.openai.com/v1",
		EmbedModel:     "text-embedding-3-small",
		EmbedDimension: 1536,
		ChatModel:      "gpt-4o-mini",
		Timeout:        120 * time.Second,
		MaxRetries:     3,
	}
}

// Provider implements llm.EmbeddingProvider and llm.CompletionProvider.
type Provider struct {
	config *Config
	client *httpclient.Client
}

var (
	_ llm.EmbeddingProvider  = (*Provider)(nil)
	_ llm.CompletionProvider = (*Provider)(nil)
)

// New creates a provider from config.
func New(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: base_url is required")
	}

	var client *httpclient.Client
	if cfg.MaxConns > 0 {
		client = httpclient.NewPooledClient(cfg.Timeout, cfg.MaxRetries, cfg.MaxConns)
	} else {
		client = httpclient.NewClient(cfg.Timeout, cfg.MaxRetries)
	}

	return &Provider{
		config: cfg,
		client: client,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

// Dimension returns the embedding dimensionality.
func (p *Provider) Dimension() int {
	return p.config.EmbedDimension
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed generates embeddings for multiple texts in one call.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var embedResp embeddingResponse
	if err := p.post(ctx, "/embeddings", embeddingRequest{
		Model: p.config.EmbedModel,
		Input: texts,
	}, &embedResp); err != nil {
		return nil, classify("embed", err)
	}

	// Order by index in case the API returns data out of order.
	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, llm.Fatal("embed", 0, fmt.Errorf("missing embedding for input %d", i))
		}
	}

	return embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends messages to the chat model and returns the completion text.
func (p *Provider) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	chatMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	reqBody := chatRequest{
		Model:       p.config.ChatModel,
		Messages:    chatMessages,
		Stream:      false,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	var chatResp chatResponse
	if err := p.post(ctx, "/chat/completions", reqBody, &chatResp); err != nil {
		return "", classify("chat", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", llm.Fatal("chat", 0, errors.New("no choices in response"))
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (p *Provider) post(ctx context.Context, path string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Fatal("request", 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return llm.Fatal("request", 0, fmt.Errorf("failed to create request: %w", err))
	}
	p.setHeaders(req)

	return p.client.DoJSON(req, out)
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	if p.config.Organization != "" {
		req.Header.Set("OpenAI-Organization", p.config.Organization)
	}
}

// classify maps transport errors to the typed categories retry logic
// dispatches on. Already-typed errors pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var te *llm.TransientError
	var fe *llm.FatalError
	if errors.As(err, &te) || errors.As(err, &fe) {
		return err
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return llm.ClassifyStatus(op, statusErr.StatusCode, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Remaining failures are transport-level: connection refused, DNS,
	// client-side timeout. All transient.
	return llm.Transient(op, 0, err)
}
