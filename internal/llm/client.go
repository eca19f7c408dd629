// Package llm wraps an OpenAI-compatible chat-completion endpoint for the two
// note helpers: translation and auto-completion.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultBaseURL = "https://models.github.ai/inference"
	DefaultModel   = "openai/gpt-4.1-mini"
	DefaultTimeout = 15 * time.Second

	defaultSourceLang     = "English"
	defaultTargetLang     = "Chinese"
	translateMaxTokens    = 2000
	defaultCompleteTokens = 200
)

var (
	ErrNotConfigured = errors.New("llm api key not configured")
	ErrEmptyResponse = errors.New("llm returned no choices")
)

// Error records the operation that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "llm " + e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Config holds LLM gateway configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	model      llms.Model
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient builds a client. A missing API key is not an error: the client
// is returned unconfigured and every call fails with ErrNotConfigured.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		config:     cfg,
		httpClient: http.DefaultClient,
		logger:     logger.With("component", "llm"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.APIKey == "" {
		c.logger.Warn("no API key set, translate and complete are disabled")
		return c, nil
	}

	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	c.model = model
	return c, nil
}

// Configured returns true if an API key was supplied.
func (c *Client) Configured() bool {
	return c.model != nil
}

// Translate returns text translated from sourceLang to targetLang. Empty
// languages default to English and Chinese.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" {
		return "", nil
	}
	if sourceLang == "" {
		sourceLang = defaultSourceLang
	}
	if targetLang == "" {
		targetLang = defaultTargetLang
	}

	system := fmt.Sprintf(
		"You are a precise translation assistant. Translate the user's text from %s to %s. "+
			"Preserve meaning and formatting. Do not add commentary, return only the translation.",
		sourceLang, targetLang,
	)
	return c.generate(ctx, "translate", system, text,
		llms.WithTemperature(0),
		llms.WithMaxTokens(translateMaxTokens),
	)
}

// Complete continues prefix. maxTokens <= 0 uses the default of 200.
func (c *Client) Complete(ctx context.Context, prefix string, maxTokens int) (string, error) {
	if prefix == "" {
		return "", nil
	}
	if maxTokens <= 0 {
		maxTokens = defaultCompleteTokens
	}

	const system = "You are a helpful assistant that continues and completes the user's partial content. " +
		"When completing, preserve the user's tone, formatting and intent. Do not introduce contradictory facts. " +
		"Return only the completed content without extra commentary."
	return c.generate(ctx, "complete", system, prefix,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(maxTokens),
	)
}

func (c *Client) generate(ctx context.Context, op, system, user string, opts ...llms.CallOption) (string, error) {
	if !c.Configured() {
		return "", &Error{Op: op, Err: ErrNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}, opts...)
	if errors.Is(err, openai.ErrEmptyResponse) {
		return "", &Error{Op: op, Err: ErrEmptyResponse}
	}
	if err != nil {
		c.logger.Error("request failed", "op", op, "duration", time.Since(start), "error", err)
		return "", &Error{Op: op, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &Error{Op: op, Err: ErrEmptyResponse}
	}

	c.logger.Debug("request complete", "op", op, "duration", time.Since(start))
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
