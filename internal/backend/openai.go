package backend

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client calls an OpenAI-compatible chat-completions endpoint with bounded
// retries and exponential backoff. It is the only component in the engine
// that retries anything.
type Client struct {
	api     *openai.Client
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// NewClient builds a Client. baseURL may be empty for the default endpoint;
// anything OpenAI-compatible (llama.cpp, vLLM, a local proxy) works.
func NewClient(baseURL, apiKey string, retries int, backoff time.Duration, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		retries: retries,
		backoff: backoff,
		logger:  logger,
	}
}

// Generate sends one chat completion and returns the reply text. Transient
// failures are retried up to the configured count; between attempts it
// sleeps with exponential backoff, honoring ctx cancellation.
func (c *Client) Generate(ctx context.Context, system, prompt string, opts ModelOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := delayForAttempt(attempt, c.backoff)
			c.logger.Warn("backend call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("backend retry wait: %w", ctx.Err())
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", fmt.Errorf("backend call: %w", err)
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("backend returned no choices")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("backend call failed after %d retries: %w", c.retries, lastErr)
}
