package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter is a fixed-window limiter keyed by client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	requests map[string]int
	started  time.Time
	now      func() time.Time
	log      *zap.Logger
}

func NewRateLimiter(limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		requests: make(map[string]int),
		started:  time.Now(),
		now:      time.Now,
		log:      log,
	}
}

func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Dropping the map on reset keeps it from growing with stale IPs.
	if now := r.now(); now.Sub(r.started) > r.window {
		r.requests = make(map[string]int)
		r.started = now
	}

	count := r.requests[ip]
	if count >= r.limit {
		return false
	}
	r.requests[ip] = count + 1
	return true
}

func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := clientIP(req)
		if !r.Allow(ip) {
			r.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", req.URL.Path))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
