package domain

import "errors"

var (
	// ErrNotProvisioned: no credential exists, or it is not in the state the
	// operation needs.
	ErrNotProvisioned    = errors.New("mfa: not provisioned")
	ErrPendingEnrollment = errors.New("mfa: enrollment not confirmed")
	ErrMFAAlreadyEnabled = errors.New("mfa: already enabled")
	ErrMalformedInput    = errors.New("mfa: malformed code")
	ErrRejected          = errors.New("mfa: code rejected")

	ErrUnauthenticated   = errors.New("session: no token presented")
	ErrInvalidSession    = errors.New("session: invalid or expired token")
	ErrInactivePrincipal = errors.New("session: principal inactive")

	ErrInvalidCredentials = errors.New("login: invalid credentials")
	ErrMFARequired        = errors.New("login: mfa code required")
	ErrChallengeNotFound  = errors.New("login: challenge not found or expired")

	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrStoreUnavailable wraps any persistence failure. It is never turned
	// into a rejection.
	ErrStoreUnavailable = errors.New("store unavailable")
)
