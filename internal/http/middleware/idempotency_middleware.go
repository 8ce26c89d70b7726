package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/deepscan-backend/internal/http/response"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	idempotencyReplayHeader = "X-Idempotency-Replayed"
	maxIdempotencyKeyLength = 128
)

// IdempotencyMiddleware replays the first completed response for a
// (scope, key) pair. A retried checkout must not open a second provider
// transaction.
type IdempotencyMiddleware struct {
	store service.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyMiddleware(store service.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

func (m *IdempotencyMiddleware) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.serve(w, r, next, scope)
		})
	}
}

// idempotentCall is one keyed request as seen by the store.
type idempotentCall struct {
	scope       string
	key         string
	fingerprint string
}

func (m *IdempotencyMiddleware) serve(w http.ResponseWriter, r *http.Request, next http.Handler, scope string) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	switch {
	case key == "":
		rejectIdempotent(w, r, scope, "missing_key", http.StatusBadRequest, "BAD_REQUEST", "missing Idempotency-Key header")
		return
	case len(key) > maxIdempotencyKeyLength:
		rejectIdempotent(w, r, scope, "invalid_key", http.StatusBadRequest, "BAD_REQUEST", "invalid Idempotency-Key header")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		rejectIdempotent(w, r, scope, "read_error", http.StatusBadRequest, "BAD_REQUEST", "invalid request payload")
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	call := idempotentCall{scope: scope, key: key, fingerprint: requestFingerprint(r, scope, body)}

	begin, err := m.store.Begin(r.Context(), scope, key, call.fingerprint, m.ttl)
	if err != nil {
		call.audit(r, "check", "failure", "store_error", "error", err.Error())
		rejectIdempotent(w, r, scope, "store_error", http.StatusInternalServerError, "INTERNAL", "idempotency check failed")
		return
	}
	switch begin.State {
	case service.IdempotencyStateConflict:
		call.audit(r, "check", "rejected", "fingerprint_conflict")
		rejectIdempotent(w, r, scope, "conflict", http.StatusConflict, "CONFLICT", "idempotency key reuse with different payload")
		return
	case service.IdempotencyStateInProgress:
		call.audit(r, "check", "rejected", "request_in_progress")
		rejectIdempotent(w, r, scope, "in_progress", http.StatusConflict, "CONFLICT", "request with this idempotency key is in progress")
		return
	case service.IdempotencyStateReplay:
		observability.RecordIdempotencyEvent(r.Context(), scope, "replayed")
		call.audit(r, "replay", "success", "cached_response")
		writeCachedResponse(w, begin.Cached)
		return
	}

	rec := &captureWriter{ResponseWriter: w}
	next.ServeHTTP(rec, r)
	observability.RecordIdempotencyEvent(r.Context(), scope, "created")
	m.finish(r, call, rec)
}

// finish records the handler's response, or releases the key when the
// handler failed so the client can retry with it.
func (m *IdempotencyMiddleware) finish(r *http.Request, call idempotentCall, rec *captureWriter) {
	status := rec.status()
	if status >= http.StatusInternalServerError {
		if err := m.store.Abandon(r.Context(), call.scope, call.key, call.fingerprint); err != nil {
			slog.WarnContext(r.Context(), "idempotency abandon failed", "scope", call.scope, "error", err.Error())
		}
		observability.RecordIdempotencyEvent(r.Context(), call.scope, "abandoned")
		return
	}
	err := m.store.Complete(r.Context(), call.scope, call.key, call.fingerprint, service.CachedHTTPResponse{
		StatusCode:  status,
		ContentType: rec.Header().Get("Content-Type"),
		Body:        rec.body.Bytes(),
	}, m.ttl)
	if err != nil {
		observability.RecordIdempotencyEvent(r.Context(), call.scope, "store_error")
		call.audit(r, "complete", "failure", "store_error", "error", err.Error())
	}
}

func (c idempotentCall) audit(r *http.Request, action, outcome, reason string, attrs ...any) {
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "idempotency." + action,
		ActorUserID: auditActorID(r),
		TargetType:  "idempotency_key",
		TargetID:    shortHash(c.key),
		Action:      action,
		Outcome:     outcome,
		Reason:      reason,
	}, append([]any{"scope", c.scope}, attrs...)...)
}

func rejectIdempotent(w http.ResponseWriter, r *http.Request, scope, event string, status int, code, message string) {
	observability.RecordIdempotencyEvent(r.Context(), scope, event)
	response.Error(w, r, status, code, message, nil)
}

func writeCachedResponse(w http.ResponseWriter, cached *service.CachedHTTPResponse) {
	if cached == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	w.Header().Set(idempotencyReplayHeader, "true")
	w.WriteHeader(cached.StatusCode)
	if len(cached.Body) > 0 {
		_, _ = w.Write(cached.Body)
	}
}

// requestFingerprint binds a key to the route, the caller and the exact
// body, so a reused key with different input is a conflict rather than a
// replay.
func requestFingerprint(r *http.Request, scope string, body []byte) string {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	bodySum := sha256.Sum256(body)
	sum := sha256.Sum256([]byte(strings.Join([]string{
		scope,
		r.Method,
		route,
		idempotencyActor(r),
		hex.EncodeToString(bodySum[:]),
	}, "\n")))
	return hex.EncodeToString(sum[:])
}

func idempotencyActor(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return "user:" + strconv.FormatUint(uint64(p.UserID), 10)
	}
	return "ip:" + clientIPKey(r)
}

func auditActorID(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return strconv.FormatUint(uint64(p.UserID), 10)
	}
	return "anonymous"
}

func shortHash(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:6])
}

type captureWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (w *captureWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *captureWriter) status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}
