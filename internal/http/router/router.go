package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/deepscan-backend/internal/health"
	"github.com/sandeepkv93/deepscan-backend/internal/http/handler"
	"github.com/sandeepkv93/deepscan-backend/internal/http/middleware"
	"github.com/sandeepkv93/deepscan-backend/internal/http/response"
)

const (
	defaultBodyLimit   = 1 << 20
	defaultUploadLimit = 50 << 20
)

type Dependencies struct {
	ScanHandler       *handler.ScanHandler
	PaymentHandler    *handler.PaymentHandler
	UserHandler       *handler.UserHandler
	IdentityVerifier  middleware.IdentityTokenVerifier
	UserResolver      middleware.UserResolver
	CORSOrigins       []string
	APIRateLimitRPM   int
	ScanRateLimitRPM  int
	ScanUploadLimit   int64
	GlobalRateLimiter GlobalRateLimiterFunc
	ScanRateLimiter   ScanRateLimiterFunc
	Idempotency       IdempotencyMiddlewareFactory
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type ScanRateLimiterFunc func(http.Handler) http.Handler
type IdempotencyMiddlewareFactory func(scope string) func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else if dep.APIRateLimitRPM > 0 {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	scanLimiter := dep.ScanRateLimiter
	if scanLimiter == nil {
		if dep.ScanRateLimitRPM > 0 {
			scanLimiter = middleware.NewDistributedRateLimiter(middleware.NewLocalFixedWindowLimiter(), dep.ScanRateLimitRPM, time.Minute, middleware.FailClosed, "scan").Middleware()
		} else {
			scanLimiter = passthrough
		}
	}
	idempotent := func(scope string) func(http.Handler) http.Handler {
		if dep.Idempotency == nil {
			return passthrough
		}
		return dep.Idempotency(scope)
	}
	uploadLimit := dep.ScanUploadLimit
	if uploadLimit <= 0 {
		uploadLimit = defaultUploadLimit
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// provider callback: authenticated by signature, not by identity token
		r.With(middleware.BodyLimit(defaultBodyLimit)).Post("/payments/webhook", dep.PaymentHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.IdentityMiddleware(dep.IdentityVerifier, dep.UserResolver))

			// uploads get their own limit; nesting under the default would cap them at 1MB
			r.With(middleware.BodyLimit(uploadLimit), scanLimiter).Post("/scans", dep.ScanHandler.Submit)

			r.Group(func(r chi.Router) {
				r.Use(middleware.BodyLimit(defaultBodyLimit))
				r.Get("/me", dep.UserHandler.Me)
				r.Get("/me/ledger", dep.UserHandler.Ledger)

				r.Get("/scans", dep.ScanHandler.List)
				r.Get("/scans/{scan_id}", dep.ScanHandler.Get)
				r.Delete("/scans/{scan_id}", dep.ScanHandler.Delete)

				r.With(idempotent("payments.initialize")).Post("/payments/initialize", dep.PaymentHandler.Initialize)
				r.Post("/payments/verify", dep.PaymentHandler.Verify)
				r.Get("/payments", dep.PaymentHandler.List)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

func passthrough(next http.Handler) http.Handler { return next }
