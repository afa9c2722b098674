package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// FailureKind classifies why a model call failed. The chat pipeline stores
// it on the exchange so callers get a machine-readable reason.
type FailureKind string

const (
	FailRateLimited FailureKind = "rate-limited"
	FailTimeout     FailureKind = "timeout"
	FailMalformed   FailureKind = "malformed"
	FailAuth        FailureKind = "auth"
	FailProvider    FailureKind = "provider"
)

// Error wraps a provider error with its classified kind.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config selects and parameterizes the chat model.
type Config struct {
	Provider    string // "openai" (any OpenAI-compatible backend) or "deepseek"
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// Client is the language-model collaborator.
type Client struct {
	cm          model.BaseChatModel
	maxTokens   int
	temperature float32
}

// NewClient builds the chat model for the configured provider.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var (
		cm  model.BaseChatModel
		err error
	)

	switch cfg.Provider {
	case "deepseek":
		cm, err = deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	default:
		maxTokens := cfg.MaxTokens
		cm, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: &maxTokens,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s chat model: %w", cfg.Provider, err)
	}

	return &Client{
		cm:          cm,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}, nil
}

// Generate sends one system + user message pair and returns the assistant
// text. Failures come back as *Error with a classified kind.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	out, err := c.cm.Generate(ctx, messages,
		model.WithTemperature(c.temperature),
		model.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", &Error{Kind: Classify(ctx, err), Err: err}
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", &Error{Kind: FailMalformed, Err: errors.New("empty model response")}
	}

	return out.Content, nil
}

// Classify maps a provider error to a FailureKind.
func Classify(ctx context.Context, err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return FailTimeout
	}
	if errors.Is(err, context.Canceled) {
		return FailTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit"):
		return FailRateLimited
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key") ||
		strings.Contains(msg, "authentication"):
		return FailAuth
	case strings.Contains(msg, "unmarshal") || strings.Contains(msg, "decode") ||
		strings.Contains(msg, "unexpected eof") || strings.Contains(msg, "malformed"):
		return FailMalformed
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return FailTimeout
	default:
		return FailProvider
	}
}
