package domain

import "time"

// Built-in roles. Role checks are a plain string match.
const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
)

// Principal is an operator account. The MFA core only reads it.
type Principal struct {
	ID           string
	Username     string
	PasswordHash string // argon2id PHC string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
