package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential supplies the bearer token attached to every data-plane request.
// The token is minted by the out-of-scope authentication layer; marquee only
// carries it and inspects its expiry.
type Credential interface {
	Token() string
}

// Bearer is a static credential, optionally a JWT. When the token parses as
// a JWT its exp claim is surfaced so surfaces can warn before requests start
// failing with auth errors.
type Bearer struct {
	raw       string
	expiresAt time.Time
}

// NewBearer wraps a raw token. JWTs are parsed without signature
// verification — validation is the server's job, we only read exp.
func NewBearer(raw string) *Bearer {
	b := &Bearer{raw: strings.TrimSpace(raw)}

	if strings.Count(b.raw, ".") == 2 {
		parser := jwt.NewParser()
		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(b.raw, claims); err == nil {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				b.expiresAt = exp.Time
			}
		}
	}

	return b
}

// Token returns the raw bearer token.
func (b *Bearer) Token() string { return b.raw }

// ExpiresAt returns the JWT expiry, or the zero time for opaque tokens.
func (b *Bearer) ExpiresAt() time.Time { return b.expiresAt }

// ExpiredAt reports whether the credential is known to be expired at now.
// Opaque tokens never report expired.
func (b *Bearer) ExpiredAt(now time.Time) bool {
	return !b.expiresAt.IsZero() && now.After(b.expiresAt)
}
