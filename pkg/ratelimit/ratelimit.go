package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter is a fixed-window token bucket keyed by client IP.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int           // tokens per window
	per     time.Duration // window size
}

type bucket struct {
	start  time.Time
	tokens int
}

// New creates a limiter allowing max requests per window per IP.
func New(max int, per time.Duration) *Limiter {
	return &Limiter{buckets: map[string]*bucket{}, max: max, per: per}
}

// Allow consumes one token for ip, reporting whether the request may
// proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[ip]
	if b == nil || time.Since(b.start) > l.per {
		b = &bucket{start: time.Now(), tokens: l.max}
		l.buckets[ip] = b
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Middleware enforces the limit before calling the next handler.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			ip = req.RemoteAddr
		}
		if !l.Allow(ip) {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
