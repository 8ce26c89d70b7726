package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/http/response"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
)

// Principal is the local user behind a verified identity token.
type Principal struct {
	UserID     uint
	ExternalID string
	Email      string
	Claims     *security.IdentityClaims
}

type IdentityTokenVerifier interface {
	Verify(raw string) (*security.IdentityClaims, error)
}

type UserResolver interface {
	Resolve(ctx context.Context, claims *security.IdentityClaims) (*domain.User, error)
}

// IdentityMiddleware accepts bearer tokens from the external identity
// provider and attaches the resolved local user to the request context.
func IdentityMiddleware(verifier IdentityTokenVerifier, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				observability.RecordIdentityValidation(r.Context(), "missing_token")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}
			claims, err := verifier.Verify(raw)
			if err != nil {
				observability.RecordIdentityValidation(r.Context(), "invalid_token")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid identity token", nil)
				return
			}

			ctx := observability.WithAuditRequest(r.Context(), r)
			user, err := users.Resolve(ctx, claims)
			if err != nil {
				observability.RecordIdentityValidation(r.Context(), "resolve_error")
				if errors.Is(err, service.ErrEmailInUse) {
					response.Error(w, r, http.StatusConflict, "CONFLICT", "email is linked to another identity", nil)
					return
				}
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to resolve user", nil)
				return
			}
			observability.RecordIdentityValidation(r.Context(), "valid")
			noteRequestUser(r.Context(), user.ID)

			ctx = context.WithValue(ctx, PrincipalContextKey, &Principal{
				UserID:     user.ID,
				ExternalID: user.ExternalID,
				Email:      user.Email,
				Claims:     claims,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*Principal)
	return p, ok && p != nil
}

// WithPrincipal is used by tests and internal callers that authenticate by
// other means.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
