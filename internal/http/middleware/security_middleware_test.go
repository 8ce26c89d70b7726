package middleware

import (
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func corsRequest(t *testing.T, origins []string, method, origin string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/v1/scans", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, reached
}

func TestCORSOriginMatching(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{name: "listed", origins: []string{"https://app.example.com"}, origin: "https://app.example.com", want: "https://app.example.com"},
		{name: "listed with trailing slash", origins: []string{" https://app.example.com/ "}, origin: "https://app.example.com", want: "https://app.example.com"},
		{name: "unlisted", origins: []string{"https://app.example.com"}, origin: "https://evil.example.com"},
		{name: "wildcard echoes", origins: []string{"*"}, origin: "http://localhost:5173", want: "http://localhost:5173"},
		{name: "no origin header", origins: []string{"*"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr, reached := corsRequest(t, tc.origins, http.MethodGet, tc.origin)
			if !reached {
				t.Fatal("expected simple request to reach the handler")
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("allow-origin = %q, want %q", got, tc.want)
			}
			if tc.origin != "" && rr.Header().Get("Vary") != "Origin" {
				t.Fatalf("expected Vary: Origin, got %q", rr.Header().Get("Vary"))
			}
		})
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rr, reached := corsRequest(t, []string{"https://app.example.com"}, http.MethodOptions, "https://app.example.com")
	if reached {
		t.Fatal("expected preflight to stop before the handler")
	}
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodDelete) {
		t.Fatalf("expected DELETE to be allowed for scan removal, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Idempotency-Key") {
		t.Fatalf("expected Idempotency-Key to be allowed, got %q", got)
	}

	rr, _ = corsRequest(t, []string{"https://app.example.com"}, http.MethodOptions, "https://evil.example.com")
	if rr.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Fatal("did not expect preflight grants for an unlisted origin")
	}
}

func TestCORSExposesRetryHeaders(t *testing.T) {
	rr, _ := corsRequest(t, []string{"*"}, http.MethodPost, "https://app.example.com")
	exposed := rr.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{"Retry-After", "X-Request-Id", idempotencyReplayHeader} {
		if !strings.Contains(exposed, h) {
			t.Fatalf("expected %s in exposed headers %q", h, exposed)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   int64
		body    string
		tooBig  bool
		wantLen int
	}{
		{name: "under limit", limit: 16, body: `{"credits":10}`, wantLen: 14},
		{name: "exact limit", limit: 4, body: "abcd", wantLen: 4},
		{name: "over limit", limit: 8, body: "123456789", tooBig: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var readErr error
			var n int
			h := BodyLimit(tc.limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, err := io.ReadAll(r.Body)
				n, readErr = len(b), err
				w.WriteHeader(http.StatusNoContent)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(tc.body)))

			var maxErr *http.MaxBytesError
			if tc.tooBig {
				if !errors.As(readErr, &maxErr) {
					t.Fatalf("expected MaxBytesError, got %v", readErr)
				}
				return
			}
			if readErr != nil || n != tc.wantLen {
				t.Fatalf("expected %d bytes without error, got %d, %v", tc.wantLen, n, readErr)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	for _, kv := range apiSecurityHeaders {
		if got := rr.Header().Get(kv[0]); got != kv[1] {
			t.Fatalf("%s = %q, want %q", kv[0], got, kv[1])
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("did not expect HSTS on plain http")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS over tls")
	}
}
