package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const requestUserSlotKey contextKey = "request_user_slot"

// requestUser is filled in by the identity middleware, which runs after the
// logger has already wrapped the request.
type requestUser struct {
	id uint
}

func noteRequestUser(ctx context.Context, userID uint) {
	if u, ok := ctx.Value(requestUserSlotKey).(*requestUser); ok {
		u.id = userID
	}
}

// requestLogLevel maps a response status to a log level. Throttling and
// unpaid scans are expected traffic but worth noticing.
func requestLogLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusTooManyRequests, status == http.StatusPaymentRequired:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// StructuredRequestLogger writes one "http.request" record per request
// through the default slog logger.
func StructuredRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		user := &requestUser{}
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(context.WithValue(r.Context(), requestUserSlotKey, user))

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}

		attrs := make([]slog.Attr, 0, 10)
		attrs = append(attrs,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Float64("duration_ms", float64(time.Since(began).Microseconds())/1000),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			slog.String("client_ip", clientIPKey(r)),
			slog.String("user_agent", r.UserAgent()),
		)
		if user.id != 0 {
			attrs = append(attrs, slog.Uint64("user_id", uint64(user.id)))
		}
		slog.LogAttrs(r.Context(), requestLogLevel(status), "http.request", attrs...)
	})
}
