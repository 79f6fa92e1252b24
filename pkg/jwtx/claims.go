package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSessionTTL is the sliding window a session token stays valid for
// after its last renewal.
const DefaultSessionTTL = 15 * time.Minute

// Claims are the session-token claims. Subject carries the principal ID.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the principal's role at issue time.
	Role string `json:"role,omitempty"`

	// Authentication Methods Reference, e.g. ["pwd","otp"].
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds claims where exp is exactly now+ttl.
func NewSessionClaims(subject, role, issuer string, amr []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role: role,
		AMR:  amr,
	}
}
