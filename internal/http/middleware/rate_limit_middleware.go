package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/http/response"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

// Decision is the outcome of a single limiter check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type fixedWindow struct {
	count       int
	windowStart time.Time
}

type localFixedWindowLimiter struct {
	mu      sync.Mutex
	store   map[string]*fixedWindow
	cleanup time.Time
	now     func() time.Time
}

type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	mode    FailureMode
	scope   string
	keyFunc KeyFunc
}

func NewLocalFixedWindowLimiter() Limiter {
	return &localFixedWindowLimiter{
		store:   make(map[string]*fixedWindow),
		cleanup: time.Now().Add(time.Minute),
		now:     time.Now,
	}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewDistributedRateLimiter(NewLocalFixedWindowLimiter(), limit, window, FailClosed, "local")
}

func NewDistributedRateLimiter(limiter Limiter, limit int, window time.Duration, mode FailureMode, scope string) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		limiter: limiter,
		limit:   limit,
		window:  window,
		mode:    mode,
		scope:   scope,
		keyFunc: PrincipalOrIPKeyFunc,
	}
}

// WithKeyFunc replaces the default principal-or-IP bucketing.
func (rl *RateLimiter) WithKeyFunc(fn KeyFunc) *RateLimiter {
	if fn != nil {
		rl.keyFunc = fn
	}
	return rl
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.scope + ":" + rl.keyFunc(r)
			decision, err := rl.limiter.Allow(r.Context(), key, rl.limit, rl.window)
			if err != nil {
				if rl.mode == FailOpen {
					observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error_allowed", string(rl.mode))
					slog.Warn("rate limiter backend unavailable, allowing request",
						"scope", rl.scope,
						"mode", string(rl.mode),
						"error", err.Error(),
					)
					next.ServeHTTP(w, r)
					return
				}
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error_denied", string(rl.mode))
				w.Header().Set("Retry-After", retryAfterHeader(rl.window))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			writeRateLimitHeaders(w, rl.limit, decision)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "denied", string(rl.mode))
				w.Header().Set("Retry-After", retryAfterHeader(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allowed", string(rl.mode))
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *localFixedWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.cleanup) {
		for k, v := range rl.store {
			if now.Sub(v.windowStart) > 2*window {
				delete(rl.store, k)
			}
		}
		rl.cleanup = now.Add(window)
	}

	entry, ok := rl.store[key]
	if !ok || now.Sub(entry.windowStart) >= window {
		entry = &fixedWindow{windowStart: now}
		rl.store[key] = entry
	}
	reset := window - now.Sub(entry.windowStart)
	if reset < 0 {
		reset = 0
	}
	if entry.count >= limit {
		return Decision{Allowed: false, Limit: limit, Remaining: 0, RetryAfter: reset, ResetAfter: reset}, nil
	}
	entry.count++
	return Decision{Allowed: true, Limit: limit, Remaining: limit - entry.count, ResetAfter: reset}, nil
}

// PrincipalOrIPKeyFunc buckets authenticated callers by user and everyone
// else by client address.
func PrincipalOrIPKeyFunc(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return "user:" + strconv.FormatUint(uint64(p.UserID), 10)
	}
	return "ip:" + clientIPKey(r)
}

func IPKeyFunc(r *http.Request) string {
	return "ip:" + clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func writeRateLimitHeaders(w http.ResponseWriter, limit int, d Decision) {
	if d.Limit > 0 {
		limit = d.Limit
	}
	if limit <= 0 {
		return
	}
	remaining := d.Remaining
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", retryAfterHeader(d.ResetAfter))
}

func retryAfterHeader(d time.Duration) string {
	if d <= 0 {
		return "1"
	}
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}
