package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AuthRateLimiter throttles the authentication endpoints per client IP.
//
// Login and registration are the endpoints worth brute-forcing, and they
// are reached before any identity exists, so the limiter keys on the
// client address (chi's RealIP middleware must run first so r.RemoteAddr
// reflects X-Forwarded-For behind a proxy). Idle entries are dropped by a
// background sweep to keep the map bounded.
type AuthRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*ipLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

const limiterIdleTTL = 10 * time.Minute

// NewAuthRateLimiter creates a limiter allowing perMin requests per minute
// with the given burst, per client IP, and starts its cleanup goroutine.
// Call Stop on shutdown.
func NewAuthRateLimiter(perMin, burst int) *AuthRateLimiter {
	rl := &AuthRateLimiter{
		limit:    rate.Limit(float64(perMin) / 60.0),
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop terminates the cleanup goroutine.
func (rl *AuthRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects over-limit requests with 429. The response body is the
// same generic shape as other errors; nothing account-specific leaks.
func (rl *AuthRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.allow(ip) {
				slog.Warn("auth rate limit exceeded", slog.String("ip", ip))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate_limited","message":"too many attempts, slow down"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *AuthRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

func (rl *AuthRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterIdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *AuthRateLimiter) cleanup() {
	cutoff := time.Now().Add(-limiterIdleTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, entry := range rl.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// Len reports the number of tracked IPs. For tests and metrics.
func (rl *AuthRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// clientIP strips the port from RemoteAddr; RealIP has already rewritten
// it when a trusted proxy is in front.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
