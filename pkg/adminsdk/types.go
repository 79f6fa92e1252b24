package adminsdk

import "time"

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Login and Enrollment
// ============================================================================

// LoginRequest is the body of POST /v1/session/login. Code and BackupCode
// are mutually exclusive; with MFA enabled one of them is required.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Code       string `json:"code,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
}

// SessionResponse is returned by a successful login or enrollment.
type SessionResponse struct {
	Token       string    `json:"token"`
	TokenType   string    `json:"token_type"` // always "Bearer"
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	PrincipalID string    `json:"principal_id"`
	Role        string    `json:"role"`
}

// MFARequiredResponse is the 409 body when the principal has MFA enabled and
// the login carried no code.
type MFARequiredResponse struct {
	Error            string   `json:"error"` // "mfa_required"
	ErrorDescription string   `json:"error_description"`
	Methods          []string `json:"mfa_methods"`
}

// EnrollmentResponse is the 202 body of a login that must enroll first.
type EnrollmentResponse struct {
	MFAToken          string                `json:"mfa_token"`
	MFATokenExpiresAt time.Time             `json:"mfa_token_expires_at"`
	Provisioning      *ProvisioningResponse `json:"provisioning"`
}

// MFATokenRequest is the body of POST /v1/mfa/provision.
type MFATokenRequest struct {
	MFAToken string `json:"mfa_token"`
}

// ConfirmRequest is the body of POST /v1/mfa/confirm.
type ConfirmRequest struct {
	MFAToken string `json:"mfa_token"`
	Code     string `json:"code"`
}

// ProvisioningResponse carries the TOTP secret and backup codes. It is shown
// once; the server keeps only the sealed secret and code fingerprints.
type ProvisioningResponse struct {
	Secret        string   `json:"secret"`
	EnrollmentURI string   `json:"enrollment_uri"`
	QRCode        string   `json:"qr_code,omitempty"` // PNG data URI
	BackupCodes   []string `json:"backup_codes"`
}

// ============================================================================
// Session and Account
// ============================================================================

// SessionInfoResponse is returned by GET /v1/session.
type SessionInfoResponse struct {
	PrincipalID string `json:"principal_id"`
	Role        string `json:"role"`
}

// MFAStatusResponse is returned by GET /v1/mfa/status.
type MFAStatusResponse struct {
	Provisioned          bool       `json:"provisioned"`
	Enabled              bool       `json:"enabled"`
	EnabledAt            *time.Time `json:"enabled_at,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz. Checks is only set by
// /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or "error: ...".
type HealthChecks struct {
	Database    string `json:"database"`
	Credentials string `json:"credentials"`
	Signer      string `json:"signer"`
}
