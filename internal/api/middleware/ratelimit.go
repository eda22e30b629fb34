package middleware

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter decides whether one more request for key fits its window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter is a fixed-window in-memory Limiter. It only limits within
// one process; RedisLimiter shares windows across replicas.
type RateLimiter struct {
	clients  map[string]*clientLimit
	now      func() time.Time
	requests int
	window   time.Duration
	mu       sync.Mutex
}

type clientLimit struct {
	resetTime time.Time
	count     int
}

// NewRateLimiter allows requests per window for each key
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*clientLimit),
		now:      time.Now,
		requests: requests,
		window:   window,
	}
}

// Allow checks and counts one request for key
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now().UTC()
	client, exists := rl.clients[key]
	if !exists || now.After(client.resetTime) {
		rl.clients[key] = &clientLimit{count: 1, resetTime: now.Add(rl.window)}
		return true, nil
	}
	if client.count < rl.requests {
		client.count++
		return true, nil
	}
	return false, nil
}

// Cleanup removes expired windows until ctx is done
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now().UTC()
			for key, client := range rl.clients {
				if now.After(client.resetTime) {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimit limits requests per client IP under scope. Limiter errors let
// the request through.
func RateLimit(limiter Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := limiter.Allow(r.Context(), scope+":"+ClientIP(r))
			if err != nil {
				log.Printf("[RATE-LIMIT] Limiter error for %s: %v", scope, err)
			} else if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"RateLimitExceeded","message":"Rate limit exceeded. Please try again later."}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the caller's IP without port. Run chi's RealIP
// middleware first when behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
