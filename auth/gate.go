// Package auth is the access control gate: it turns credentials into
// identities. Both the HTTP surface and the realtime handshake resolve their
// caller through the same Gate, so no code path trusts a client-claimed id.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codemates/mates"
)

const defaultTokenTTL = 30 * 24 * time.Hour

type claims struct {
	jwt.RegisteredClaims
}

// Gate issues and verifies HMAC-signed bearer tokens carrying one identity.
type Gate struct {
	secret []byte
	ttl    time.Duration
}

func NewGate(secret string, ttl time.Duration) (*Gate, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Gate{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of issued tokens, for cookie expiry.
func (g *Gate) TTL() time.Duration { return g.ttl }

// Issue creates a signed token for an identity.
func (g *Gate) Issue(identity string) (string, error) {
	now := time.Now().UTC()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(g.secret)
}

// Authenticate resolves a token to the identity it was issued for. Any
// parse, signature or expiry problem comes back as ErrUnauthenticated; the
// detail stays out of the caller-visible error.
func (g *Gate) Authenticate(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing credential", mates.ErrUnauthenticated)
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: invalid credential", mates.ErrUnauthenticated)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return "", fmt.Errorf("%w: invalid credential", mates.ErrUnauthenticated)
	}
	return c.Subject, nil
}
