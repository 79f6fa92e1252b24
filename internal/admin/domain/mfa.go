package domain

import "time"

// MFACredential is the TOTP enrollment of one principal. SealedSecret is the
// AES-GCM sealed raw secret and is never handed back to a client.
type MFACredential struct {
	PrincipalID  string
	SealedSecret []byte
	Enabled      bool
	BackupCodes  []string // SHA-256 fingerprints of canonical codes
	CreatedAt    time.Time
	EnabledAt    *time.Time
}

// ProvisioningBundle is shown exactly once, in the provisioning response.
type ProvisioningBundle struct {
	Secret        string // canonical base32, no padding
	EnrollmentURI string // otpauth://totp/...
	BackupCodes   []string
}

// MFAStatus summarizes a principal's enrollment without exposing secrets.
type MFAStatus struct {
	Provisioned          bool
	Enabled              bool
	EnabledAt            *time.Time
	BackupCodesRemaining int
}

// LoginChallenge suspends a login between the password check and MFA
// confirmation. The client holds the raw mfa_token; only its fingerprint is
// stored.
type LoginChallenge struct {
	ID          string
	PrincipalID string
	TokenHash   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
