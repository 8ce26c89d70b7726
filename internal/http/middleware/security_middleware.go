package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

func RequestID(next http.Handler) http.Handler { return chimiddleware.RequestID(next) }

// The API only serves JSON, so the document policy can be strict.
var apiSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range apiSecurityHeaders {
			h.Set(kv[0], kv[1])
		}
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

var (
	corsAllowHeaders  = strings.Join([]string{"Authorization", "Content-Type", idempotencyHeader}, ", ")
	corsAllowMethods  = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}, ", ")
	corsExposeHeaders = strings.Join([]string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", chimiddleware.RequestIDHeader, idempotencyReplayHeader}, ", ")
)

type corsPolicy struct {
	any     bool
	origins map[string]bool
}

func newCORSPolicy(origins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[o] = true
		}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	return p.any || p.origins[origin]
}

// CORS echoes an allowed Origin back instead of "*", including under a
// wildcard config.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions
			if origin != "" {
				h := w.Header()
				h.Add("Vary", "Origin")
				if policy.allows(origin) {
					observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "allow_origin")
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
					if preflight {
						h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
						h.Set("Access-Control-Allow-Methods", corsAllowMethods)
						h.Set("Access-Control-Max-Age", "600")
					}
				} else {
					observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "rejected_origin")
				}
			}
			if preflight {
				observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "preflight")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit caps the request body. Handlers see *http.MaxBytesError from
// their reads and decide how to answer it.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				observability.RecordMiddlewareValidationEvent(r.Context(), "body_limit", "declared_too_large")
			}
			r.Body = &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, maxBytes), ctx: r.Context()}
			next.ServeHTTP(w, r)
		})
	}
}

type limitedBody struct {
	io.ReadCloser
	ctx      context.Context
	reported bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && !b.reported {
		b.reported = true
		outcome := "read_error"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			outcome = "rejected_too_large"
		}
		observability.RecordMiddlewareValidationEvent(b.ctx, "body_limit", outcome)
	}
	return n, err
}
