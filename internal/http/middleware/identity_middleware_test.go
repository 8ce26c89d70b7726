package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
	servicegomock "github.com/sandeepkv93/deepscan-backend/internal/service/gomock"
	"go.uber.org/mock/gomock"
)

const (
	testIdentitySecret   = "abcdefghijklmnopqrstuvwxyz123456"
	testIdentityIssuer   = "deepscan-identity"
	testIdentityAudience = "deepscan-api"
)

func signTestIdentity(t *testing.T, subject, email string) string {
	t.Helper()
	token, err := security.SignIdentityToken(testIdentitySecret, testIdentityIssuer, testIdentityAudience, subject, email, "Ada", time.Minute)
	if err != nil {
		t.Fatalf("sign identity token: %v", err)
	}
	return token
}

func TestIdentityMiddlewareAttachesPrincipal(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := servicegomock.NewMockUserServiceInterface(ctrl)
	users.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, claims *security.IdentityClaims) (*domain.User, error) {
			if claims.Subject != "ext-1" {
				t.Fatalf("expected subject ext-1, got %q", claims.Subject)
			}
			u := &domain.User{ExternalID: claims.Subject, Email: claims.Email}
			u.ID = 9
			return u, nil
		},
	)

	verifier := security.NewIdentityVerifier(testIdentitySecret, testIdentityIssuer, testIdentityAudience)
	var seen *Principal
	h := IdentityMiddleware(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+signTestIdentity(t, "ext-1", "Ada@Example.com"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if seen == nil || seen.UserID != 9 || seen.ExternalID != "ext-1" || seen.Email != "ada@example.com" {
		t.Fatalf("unexpected principal: %+v", seen)
	}
}

func TestIdentityMiddlewareRejections(t *testing.T) {
	verifier := security.NewIdentityVerifier(testIdentitySecret, testIdentityIssuer, testIdentityAudience)
	otherIssuer, err := security.SignIdentityToken(testIdentitySecret, "someone-else", testIdentityAudience, "ext-1", "a@example.com", "", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "wrong issuer", header: "Bearer " + otherIssuer},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			users := servicegomock.NewMockUserServiceInterface(ctrl)
			h := IdentityMiddleware(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestIdentityMiddlewareResolveFailures(t *testing.T) {
	verifier := security.NewIdentityVerifier(testIdentitySecret, testIdentityIssuer, testIdentityAudience)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "email linked elsewhere", err: service.ErrEmailInUse, want: http.StatusConflict},
		{name: "store failure", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			users := servicegomock.NewMockUserServiceInterface(ctrl)
			users.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(nil, tc.err)
			h := IdentityMiddleware(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			req.Header.Set("Authorization", "bearer "+signTestIdentity(t, "ext-2", "b@example.com"))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
