package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	bg := context.Background()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want FailureKind
	}{
		{"rate limit status", bg, errors.New("request failed: 429 Too Many Requests"), FailRateLimited},
		{"rate limit text", bg, errors.New("openai: rate limit reached for gpt-4o-mini"), FailRateLimited},
		{"auth status", bg, errors.New("request failed: 401 Unauthorized"), FailAuth},
		{"auth text", bg, errors.New("incorrect API key provided"), FailAuth},
		{"malformed body", bg, errors.New("json: cannot unmarshal string into choices"), FailMalformed},
		{"deadline sentinel", bg, context.DeadlineExceeded, FailTimeout},
		{"wrapped deadline", bg, fmt.Errorf("call: %w", context.DeadlineExceeded), FailTimeout},
		{"cancel sentinel", bg, context.Canceled, FailTimeout},
		{"timeout text", bg, errors.New("client timeout exceeded while awaiting headers"), FailTimeout},
		{"anything else", bg, errors.New("internal server error"), FailProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ctx, tt.err))
		})
	}
}

func TestClassifyUsesContextState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	got := Classify(ctx, errors.New("connection reset by peer"))
	assert.Equal(t, FailTimeout, got)
}

func TestErrorWrapping(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Kind: FailProvider, Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "provider")

	var lerr *Error
	require.ErrorAs(t, fmt.Errorf("synthesize: %w", err), &lerr)
	assert.Equal(t, FailProvider, lerr.Kind)
}

func TestNewClientOpenAI(t *testing.T) {
	client, err := NewClient(context.Background(), Config{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		BaseURL:     "https://api.openai.com/v1",
		APIKey:      "sk-test",
		MaxTokens:   2000,
		Temperature: 0.1,
	})

	require.NoError(t, err)
	assert.Equal(t, 2000, client.maxTokens)
	assert.InDelta(t, 0.1, float64(client.temperature), 1e-6)
}
