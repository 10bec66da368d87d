package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	openrouter "github.com/revrost/go-openrouter"

	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

const jsonOnlyInstruction = "\n\nRespond with a single JSON object and nothing else."

type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
}

// Client mirrors the openai client surface so either can back the text generators.
type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	GenerateJSON(ctx context.Context, system string, user string) (string, error)
}

type completeFunc func(ctx context.Context, req openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error)

type client struct {
	log        *logger.Logger
	model      string
	complete   completeFunc
	maxRetries int
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("missing OPENROUTER_API_KEY")
	}
	or := openrouter.NewClient(key)
	return newClient(log, cfg, or.CreateChatCompletion), nil
}

func newClient(log *logger.Logger, cfg Config, complete completeFunc) *client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "openai/gpt-4.1-mini"
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &client{
		log:        log.With("service", "OpenRouterClient"),
		model:      model,
		complete:   complete,
		maxRetries: retries,
	}
}

func (c *client) chat(ctx context.Context, system, user string) (string, error) {
	req := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{
			{Role: openrouter.ChatMessageRoleSystem, Content: openrouter.Content{Text: system}},
			{Role: openrouter.ChatMessageRoleUser, Content: openrouter.Content{Text: user}},
		},
	}

	backoff := time.Second
	for attempt := 0; ; attempt++ {
		resp, err := c.complete(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("openrouter: no choices in response")
			}
			text := strings.TrimSpace(resp.Choices[0].Message.Content.Text)
			if text == "" {
				return "", fmt.Errorf("openrouter: empty message content")
			}
			return text, nil
		}
		if attempt >= c.maxRetries || !httpx.IsRetryableError(err) {
			return "", fmt.Errorf("openrouter chat completion: %w", err)
		}
		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("OpenRouter request retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return "", err
		}
		backoff *= 2
	}
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	return c.chat(ctx, system, user)
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string) (string, error) {
	return c.chat(ctx, system+jsonOnlyInstruction, user)
}
