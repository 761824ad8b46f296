package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleTTL = 10 * time.Minute

// Limiter applies a per-client budget and a global budget to inbound requests
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	rate    rate.Limit
	burst   int
	global  *rate.Limiter
	now     func() time.Time
	swept   time.Time
	trusted []string
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a Limiter allowing perMinute requests per client and ten times that overall.
// Forwarded headers identify the client only when the peer is one of trustedProxies.
func New(perMinute int, trustedProxies []string) *Limiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	globalPerMinute := perMinute * 10
	return &Limiter{
		clients: make(map[string]*client),
		rate:    rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		global:  rate.NewLimiter(rate.Limit(float64(globalPerMinute)/60.0), globalPerMinute),
		now:     time.Now,
		trusted: trustedProxies,
	}
}

// Allow reports whether a request from key may proceed
func (l *Limiter) Allow(key string) bool {
	if !l.global.Allow() {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) > idleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > idleTTL {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}

// Middleware rejects requests over budget with 429, keyed by client IP
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r, l.trusted)) {
			w.Header().Set("Retry-After", "60")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"kind":"rate_limited","message":"Too many requests, please try again later."}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
