package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/pkg/circuitbreaker"
	"github.com/infra-agent/backend/pkg/retry"
)

var ErrDisabled = errors.New("llm client is disabled")

// Config for the optional narrative model. The assistant works fully
// without it; an empty API key leaves the client disabled.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Client wraps the chat-completion API behind a circuit breaker and
// bounded retries. All entry points degrade with an error the caller is
// expected to swallow; the model is narrative garnish, never the source
// of truth.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	breaker     *circuitbreaker.CircuitBreaker
	retryCfg    retry.Config
	logger      *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		logger.Info("LLM client disabled, no API key configured")
		return &Client{logger: logger}
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 600
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 2
	retryCfg.Logger = logger

	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		breaker: circuitbreaker.New("llm", circuitbreaker.Config{
			FailureThreshold: 3,
			Timeout:          30 * time.Second,
			Logger:           logger,
		}),
		retryCfg: retryCfg,
		logger:   logger,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.api != nil
}

// Complete runs one system+user exchange and returns the model text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return retry.DoWithResult(ctx, c.retryCfg, func() (string, error) {
		var text string
		err := c.breaker.Execute(ctx, func() error {
			resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				MaxTokens:   c.maxTokens,
				Temperature: c.temperature,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: system},
					{Role: openai.ChatMessageRoleUser, Content: user},
				},
			})
			if err != nil {
				return fmt.Errorf("chat completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return errors.New("chat completion returned no choices")
			}
			text = resp.Choices[0].Message.Content
			return nil
		})
		return text, err
	})
}

// PlanNarrative turns a structured plan summary into prose. Failures are
// logged and reported; callers fall back to the structured rendering.
func (c *Client) PlanNarrative(ctx context.Context, planSummary string) (string, error) {
	const system = "You are an infrastructure advisor. Rewrite the provided " +
		"deployment plan as two short, plain-language paragraphs for a " +
		"technical stakeholder. Do not invent resources that are not in the plan."

	text, err := c.Complete(ctx, system, planSummary)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			c.logger.Warn("Plan narrative generation failed", zap.Error(err))
		}
		return "", err
	}
	return text, nil
}
