package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"repofix/internal/ratelimit"
)

// ClientLimiter keeps one token bucket per remote IP. The set of buckets is
// bounded; the least recently seen client is evicted and its bucket stopped.
// X-Forwarded-For is only honored when trustForwarded is set, i.e. when the
// server sits behind a proxy that overwrites the header.
type ClientLimiter struct {
	rps            float64
	burst          int
	trustForwarded bool

	mu      sync.Mutex
	buckets *lru.Cache[string, *ratelimit.Limiter]
}

// NewClientLimiter returns nil when rps <= 0, which disables limiting.
func NewClientLimiter(rps float64, burst, size int, trustForwarded bool) (*ClientLimiter, error) {
	if rps <= 0 {
		return nil, nil
	}
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.NewWithEvict[string, *ratelimit.Limiter](size, func(_ string, l *ratelimit.Limiter) {
		l.Stop()
	})
	if err != nil {
		return nil, err
	}
	return &ClientLimiter{rps: rps, burst: burst, trustForwarded: trustForwarded, buckets: cache}, nil
}

// Allow reports whether the client may proceed now.
func (c *ClientLimiter) Allow(client string) bool {
	if c == nil {
		return true
	}
	// Held across l.Allow so an eviction cannot stop the bucket in between.
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.buckets.Get(client)
	if !ok {
		l = ratelimit.New(c.rps, c.burst)
		c.buckets.Add(client, l)
	}
	return l.Allow()
}

// Len is the number of tracked clients.
func (c *ClientLimiter) Len() int {
	if c == nil {
		return 0
	}
	return c.buckets.Len()
}

// Close stops every bucket.
func (c *ClientLimiter) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets.Purge()
}

// RateLimit rejects requests with 429 once a client runs out of tokens.
// Preflights are never limited.
func RateLimit(limiter *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions && !limiter.Allow(clientIP(r, limiter.trustForwarded)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": "too many requests",
					"kind":  "rate_limited",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the peer address, or the first X-Forwarded-For entry when
// trustForwarded is set.
func clientIP(r *http.Request, trustForwarded bool) string {
	if !trustForwarded {
		return remoteHost(r)
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
