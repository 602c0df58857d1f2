package shopify

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signSessionToken(t *testing.T, secret string, claims SessionClaims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() SessionClaims {
	now := time.Now()
	return SessionClaims{
		Dest: "https://demo.myshopify.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://demo.myshopify.com/admin",
			Audience:  jwt.ClaimStrings{"api-key"},
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}
}

func TestVerifySessionToken(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tok := signSessionToken(t, "secret", validClaims(), jwt.SigningMethodHS256)
		shop, err := VerifySessionToken(tok, "api-key", "secret")
		require.NoError(t, err)
		assert.Equal(t, "demo.myshopify.com", shop)
	})

	tests := []struct {
		name   string
		mutate func(*SessionClaims)
		secret string
		method jwt.SigningMethod
	}{
		{name: "wrong secret", secret: "other"},
		{name: "wrong audience", mutate: func(c *SessionClaims) { c.Audience = jwt.ClaimStrings{"someone-else"} }},
		{name: "expired", mutate: func(c *SessionClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour)) }},
		{name: "no expiry", mutate: func(c *SessionClaims) { c.ExpiresAt = nil }},
		{name: "dest not a shop", mutate: func(c *SessionClaims) { c.Dest = "https://evil.example.com" }},
		{name: "issuer mismatch", mutate: func(c *SessionClaims) { c.Issuer = "https://other.myshopify.com/admin" }},
		{name: "wrong algorithm", method: jwt.SigningMethodHS512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims()
			if tt.mutate != nil {
				tt.mutate(&claims)
			}
			secret := "secret"
			if tt.secret != "" {
				secret = tt.secret
			}
			method := jwt.SigningMethod(jwt.SigningMethodHS256)
			if tt.method != nil {
				method = tt.method
			}
			tok := signSessionToken(t, secret, claims, method)

			_, err := VerifySessionToken(tok, "api-key", "secret")
			assert.ErrorIs(t, err, ErrInvalidSessionToken)
		})
	}

	_, err := VerifySessionToken("garbage", "api-key", "secret")
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}
