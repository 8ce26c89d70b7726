package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidIdentityToken = errors.New("invalid identity token")

// IdentityClaims are issued by the external identity provider. Subject is
// the provider's stable user id.
type IdentityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type IdentityVerifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

func NewIdentityVerifier(secret, issuer, audience string) *IdentityVerifier {
	return &IdentityVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   30 * time.Second,
	}
}

func (v *IdentityVerifier) Verify(raw string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentityToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidIdentityToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidIdentityToken)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, fmt.Errorf("%w: missing email", ErrInvalidIdentityToken)
	}
	claims.Email = strings.ToLower(strings.TrimSpace(claims.Email))
	return claims, nil
}

// SignIdentityToken mints a token the verifier accepts. The API never issues
// identity tokens itself; tools and tests use this to act as the provider.
func SignIdentityToken(secret, issuer, audience, subject, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
