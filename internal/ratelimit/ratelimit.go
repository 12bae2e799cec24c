// Package ratelimit provides a small token-bucket limiter shared by the model
// client middleware and the HTTP per-client limiter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter throttles to at most R events per second with an optional burst
// capacity. A nil *Limiter never blocks.
type Limiter struct {
	tokens   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a limiter that allows up to rps events per second with a burst
// capacity of burst. If rps <= 0 the limiter is disabled and New returns nil.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	l := &Limiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}

	// Pre-fill bucket to allow an initial burst.
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	// Fractional rps gives a sub-second period (1.5 rps ≈ 666ms).
	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
					// bucket full; drop token
				}
			case <-l.stopCh:
				return
			}
		}
	}()

	return l
}

// Acquire blocks until a token is available or the context is canceled.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

// Allow takes a token without waiting and reports whether one was available.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	select {
	case <-l.stopCh:
		return false
	case <-l.tokens:
		return true
	default:
		return false
	}
}

// Stop terminates the refill goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
}
