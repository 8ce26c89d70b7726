package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

func TestIdentityVerifierAcceptsProviderToken(t *testing.T) {
	token, err := SignIdentityToken(testSecret, "idp", "api", "idp|42", " Ada@Example.com ", "Ada", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := NewIdentityVerifier(testSecret, "idp", "api").Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "idp|42" || claims.Email != "ada@example.com" || claims.Name != "Ada" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestIdentityVerifierRejections(t *testing.T) {
	verifier := NewIdentityVerifier(testSecret, "idp", "api")

	wrongAudience, _ := SignIdentityToken(testSecret, "idp", "other", "s", "a@example.com", "", time.Minute)
	wrongIssuer, _ := SignIdentityToken(testSecret, "evil", "api", "s", "a@example.com", "", time.Minute)
	wrongSecret, _ := SignIdentityToken("zyxwvutsrqponmlkjihgfedcba654321", "idp", "api", "s", "a@example.com", "", time.Minute)
	expired, _ := SignIdentityToken(testSecret, "idp", "api", "s", "a@example.com", "", -time.Hour)
	noSubject, _ := SignIdentityToken(testSecret, "idp", "api", "", "a@example.com", "", time.Minute)
	noEmail, _ := SignIdentityToken(testSecret, "idp", "api", "s", "", "", time.Minute)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "s", Issuer: "idp", Audience: jwt.ClaimStrings{"api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"wrong audience": wrongAudience,
		"wrong issuer":   wrongIssuer,
		"wrong secret":   wrongSecret,
		"expired":        expired,
		"no subject":     noSubject,
		"no email":       noEmail,
		"none alg":       noneAlg,
		"garbage":        "not.a.token",
	}
	for name, token := range cases {
		if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidIdentityToken) {
			t.Fatalf("%s: expected ErrInvalidIdentityToken, got %v", name, err)
		}
	}
}
