package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	llmclient "repofix/internal/llmClient"
)

// Retry retries GenerateText up to maxAttempts with jittered exponential
// backoff starting at baseDelay. Permanent errors and a finished context
// stop it immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &retrying{next: next, max: maxAttempts, base: baseDelay, jitter: rand.Int64N}
	}
}

type retrying struct {
	next   llmclient.LLMClient
	max    int
	base   time.Duration
	jitter func(n int64) int64
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateText(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.GenerateText(ctx, prompt)
		if err == nil {
			return out, nil
		}
		var pErr *llmclient.PermanentError
		if errors.As(err, &pErr) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		if err := sleepCtx(ctx, r.backoff(i)); err != nil {
			return "", err
		}
	}
	return "", last
}

// backoff picks a delay in [base*2^i/2, base*2^i).
func (r *retrying) backoff(attempt int) time.Duration {
	ceil := r.base * time.Duration(1<<attempt)
	half := int64(ceil / 2)
	if half <= 0 {
		return ceil
	}
	return time.Duration(half + r.jitter(half))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
