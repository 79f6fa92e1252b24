package domain

import "time"

// SessionToken is a signed bearer credential. ExpiresAt is always
// IssuedAt plus the configured TTL.
type SessionToken struct {
	Raw       string
	SubjectID string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
