package jobboard

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the token issued by the backend. When the token is a JWT its
// registered claims are read without verifying the signature; the backend is
// the only party that verifies tokens.
type Credentials struct {
	Token     string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewCredentials parses token once at the authentication boundary. Opaque
// tokens produce credentials with only Token set.
func NewCredentials(token string) Credentials {
	token = strings.TrimSpace(token)
	creds := Credentials{Token: token}
	if token == "" || strings.Count(token, ".") != 2 {
		return creds
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return creds
	}

	creds.Subject = claims.Subject
	if claims.IssuedAt != nil {
		creds.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		creds.ExpiresAt = claims.ExpiresAt.Time
	}
	return creds
}

// IsZero reports whether no token is held.
func (c Credentials) IsZero() bool {
	return c.Token == ""
}

// Expired reports whether the token carries an expiry that is past now.
// Tokens without expiry never expire client side.
func (c Credentials) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}
