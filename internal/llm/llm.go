package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	llmclient "repofix/internal/llmClient"
)

// Options selects a backend and its middleware settings.
type Options struct {
	Provider    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	RetryBase   time.Duration
	RPS         float64
	Burst       int
	FakeReply   string
}

// New builds the model client used for the whole process lifetime:
//
//	Timeout -> WithLogging -> Retry -> RateLimit -> backend
//
// The deadline covers every retry; the rate limiter is charged per attempt.
func New(ctx context.Context, opts Options, logger *zap.Logger) (llmclient.LLMClient, error) {
	var inner llmclient.LLMClient
	switch opts.Provider {
	case "gemini":
		g, err := llmclient.NewGeminiClient(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		inner = g
	case "fake":
		inner = llmclient.NewFakeClient(opts.FakeReply)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
	return Wrap(inner,
		Timeout(opts.Timeout),
		WithLogging(logger),
		Retry(opts.MaxAttempts, opts.RetryBase),
		RateLimit(opts.RPS, opts.Burst),
	), nil
}
