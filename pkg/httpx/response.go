package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON writes v as JSON with no-store caching headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks the response as uncacheable. Every response that carries a
// token or secret needs it.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// Error is the JSON error body every handler returns.
type Error struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Description }

func (e *Error) Write(w http.ResponseWriter) {
	WriteJSON(w, e.Status, e)
}

var (
	ErrInvalidRequest = &Error{
		Status:      http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "the request is malformed or missing required parameters",
	}
	ErrInvalidCredentials = &Error{
		Status:      http.StatusUnauthorized,
		Code:        "invalid_credentials",
		Description: "authentication failed",
	}
	ErrInvalidToken = &Error{
		Status:      http.StatusUnauthorized,
		Code:        "invalid_token",
		Description: "the session token is missing, invalid or expired",
	}
	ErrForbidden = &Error{
		Status:      http.StatusForbidden,
		Code:        "forbidden",
		Description: "insufficient role for this operation",
	}
	ErrNotFound = &Error{
		Status:      http.StatusNotFound,
		Code:        "not_found",
		Description: "the requested resource does not exist",
	}
	ErrConflict = &Error{
		Status:      http.StatusConflict,
		Code:        "conflict",
		Description: "the resource is in a state that does not allow this operation",
	}
	ErrRateLimited = &Error{
		Status:      http.StatusTooManyRequests,
		Code:        "rate_limit_exceeded",
		Description: "too many requests, try again later",
	}
	ErrUnavailable = &Error{
		Status:      http.StatusServiceUnavailable,
		Code:        "temporarily_unavailable",
		Description: "a backing service is unavailable, try again later",
	}
	ErrServerError = &Error{
		Status:      http.StatusInternalServerError,
		Code:        "server_error",
		Description: "internal server error",
	}
)

// TokenHeader carries the session token on requests and the renewed token
// on responses.
const TokenHeader = "X-Token"

// ExtractToken reads the session token from "Authorization: Bearer" or,
// failing that, the X-Token header. It returns "" when neither is present.
func ExtractToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

// WriteBearerError answers 401 with an RFC 6750 challenge and the generic
// invalid_token body.
func WriteBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	ErrInvalidToken.Write(w)
}
