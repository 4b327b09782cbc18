package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RealIP returns the client address for rate-limit keying. It trusts
// CF-Connecting-IP first, then the leftmost X-Forwarded-For hop, and falls
// back to the socket address.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type window struct {
	count     int
	expiresAt time.Time
}

// RateLimiter counts requests per key in fixed windows, in memory. Good
// enough for a single-process deployment; there is no shared state to sync.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*window
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{entries: make(map[string]*window)}
}

// Allow records a hit for key and reports whether it stays within limit
// for the current window. A fresh or expired window starts counting over.
func (rl *RateLimiter) Allow(key string, limit int, dur time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.entries[key]
	if !ok || now.After(w.expiresAt) {
		rl.entries[key] = &window{count: 1, expiresAt: now.Add(dur)}
		return true
	}
	w.count++
	return w.count <= limit
}

// Cleanup drops windows that have expired. Called from a periodic task so
// the map does not grow with every address ever seen.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, w := range rl.entries {
		if now.After(w.expiresAt) {
			delete(rl.entries, key)
		}
	}
}

// RateLimit wraps a handler, rejecting requests over limit per window with
// a 429.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, dur time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r), limit, dur) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
