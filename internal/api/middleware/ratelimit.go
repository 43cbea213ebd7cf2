package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstCapacityMultiplier = 2
	defaultGlobalRPS        = 50
	defaultClientRPS        = 10
	cleanupInterval         = 5 * time.Minute
	clientIdleTimeout       = 1 * time.Hour
)

type (
	// RateLimiter decides whether a request identified by a client key should
	// be allowed. Implementations may use in-memory token buckets (single-node
	// deployments) or distributed stores.
	RateLimiter interface {
		// Allow reports whether a request from the given client should proceed.
		Allow(client string) bool
	}

	// InMemoryRateLimiter implements RateLimiter using golang.org/x/time/rate.
	//
	// Two tiers: a global limit over all requests plus a per-client limit
	// keyed by remote IP. Token buckets allow short bursts above the
	// sustained rate. Idle client buckets are removed periodically to bound
	// memory.
	InMemoryRateLimiter struct {
		global    *rate.Limiter
		perClient map[string]*clientLimiter
		mu        sync.Mutex
		done      chan struct{}
		closeOnce sync.Once

		clientRPS   int
		clientBurst int
	}

	clientLimiter struct {
		limiter    *rate.Limiter
		lastAccess time.Time
	}
)

// NewInMemoryRateLimiter creates a two-tier in-memory rate limiter. Burst
// capacity is 2 × rate for both tiers. Zero or negative rates fall back to
// the defaults.
func NewInMemoryRateLimiter(globalRPS, clientRPS int) *InMemoryRateLimiter {
	if globalRPS <= 0 {
		globalRPS = defaultGlobalRPS
	}

	if clientRPS <= 0 {
		clientRPS = defaultClientRPS
	}

	l := &InMemoryRateLimiter{
		global:      rate.NewLimiter(rate.Limit(globalRPS), globalRPS*burstCapacityMultiplier),
		perClient:   make(map[string]*clientLimiter),
		done:        make(chan struct{}),
		clientRPS:   clientRPS,
		clientBurst: clientRPS * burstCapacityMultiplier,
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether a request from client should proceed.
func (l *InMemoryRateLimiter) Allow(client string) bool {
	if !l.global.Allow() {
		return false
	}

	l.mu.Lock()

	cl, ok := l.perClient[client]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.clientRPS), l.clientBurst),
		}
		l.perClient[client] = cl
	}

	cl.lastAccess = time.Now()
	l.mu.Unlock()

	return cl.limiter.Allow()
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (l *InMemoryRateLimiter) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

func (l *InMemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.mu.Lock()

			for client, cl := range l.perClient {
				if now.Sub(cl.lastAccess) > clientIdleTimeout {
					delete(l.perClient, client)
				}
			}

			l.mu.Unlock()
		}
	}
}

// RateLimit creates a middleware that rejects requests over the limit with
// 429 Too Many Requests. Clients are keyed by remote IP.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)

			if !limiter.Allow(client) {
				logger.Warn("Request rate limited",
					slog.String("client", client),
					slog.String("path", r.URL.Path),
					slog.String("correlation_id", GetCorrelationID(r.Context())),
				)

				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
