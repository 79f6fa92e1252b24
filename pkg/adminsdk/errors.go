package adminsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// Error codes used in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeMFARequired        = "mfa_required"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeConflict           = "conflict"
	ErrorCodeRateLimited        = "rate_limit_exceeded"
	ErrorCodeUnavailable        = "temporarily_unavailable"
	ErrorCodeServerError        = "server_error"
)

// MFA methods advertised in MFARequiredResponse.
const (
	MethodTOTP       = "totp"
	MethodBackupCode = "backup_code"
)

// APIError is any error response the client does not model more precisely.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsCode reports whether err is an *APIError with one of the given codes.
func IsCode(err error, codes ...string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && slices.Contains(codes, apiErr.Code)
}

// MFARequiredError is returned by Login when the principal has MFA enabled
// and the request carried neither a code nor a backup code.
type MFARequiredError struct {
	Methods []string
}

func (e *MFARequiredError) Error() string {
	return fmt.Sprintf("MFA required: available methods=%v", e.Methods)
}

// EnrollmentRequiredError is returned by Login when the principal has no
// enabled credential. It carries the provisioning bundle and the MFA token
// for ConfirmEnrollment.
type EnrollmentRequiredError struct {
	EnrollmentResponse
}

func (e *EnrollmentRequiredError) Error() string {
	return "MFA enrollment required"
}

// parseErrorResponse turns a non-2xx response into a typed error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusConflict {
		var mfaResp MFARequiredResponse
		if err := json.Unmarshal(body, &mfaResp); err == nil && mfaResp.Error == ErrorCodeMFARequired {
			return &MFARequiredError{Methods: mfaResp.Methods}
		}
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
