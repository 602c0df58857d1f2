package shopify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionClaims are the claims of an App Bridge session token.
type SessionClaims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// VerifySessionToken validates an App Bridge session token (HS256, signed
// with the app secret, audience = api key) and returns the shop domain.
func VerifySessionToken(tokenString, apiKey, apiSecret string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(apiSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidSessionToken
	}

	u, err := url.Parse(claims.Dest)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: bad dest claim", ErrInvalidSessionToken)
	}
	shop := strings.ToLower(u.Host)
	if !IsValidShopDomain(shop) {
		return "", fmt.Errorf("%w: dest %q is not a shop", ErrInvalidSessionToken, shop)
	}
	if iss, err := url.Parse(claims.Issuer); err == nil && iss.Host != "" && !strings.EqualFold(iss.Host, shop) {
		return "", fmt.Errorf("%w: issuer does not match dest", ErrInvalidSessionToken)
	}
	return shop, nil
}
