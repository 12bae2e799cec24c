package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	llmclient "repofix/internal/llmClient"
	"repofix/internal/ratelimit"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (deadlines, retries, rate limiting, logging).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Deadline --------

// Timeout bounds every call (including all retries below it) by d.
// d <= 0 disables the deadline.
func Timeout(d time.Duration) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if d <= 0 {
			return next
		}
		return &deadlined{next: next, d: d}
	}
}

type deadlined struct {
	next llmclient.LLMClient
	d    time.Duration
}

func (c *deadlined) Name() string { return c.next.Name() }
func (c *deadlined) Close() error { return c.next.Close() }
func (c *deadlined) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.GenerateText(ctx, prompt)
}

// -------- Rate Limiting --------

// RateLimit limits request rate with a token bucket.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		rl := ratelimit.New(rps, burst) // nil when disabled
		if rl == nil {
			return next
		}
		return &rateLimited{next: next, rl: rl}
	}
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *ratelimit.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.GenerateText(ctx, prompt)
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. A nil logger disables
// logging.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger.Named("llm")}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	l.log.Debug("LLM request",
		zap.String("model", l.next.Name()),
		zap.Int("prompt_bytes", len(prompt)),
	)
	out, err := l.next.GenerateText(ctx, prompt)
	if err != nil {
		l.log.Warn("LLM error",
			zap.String("model", l.next.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return out, err
	}
	l.log.Info("LLM reply",
		zap.String("model", l.next.Name()),
		zap.Int("reply_bytes", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
