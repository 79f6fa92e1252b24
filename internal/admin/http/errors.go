package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 16 << 10

// writeServiceError maps a service error to its response. Wrong codes,
// unknown backup codes, missing credentials and bad passwords all get the
// same invalid_credentials body.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Error(op+" failed", "error", err)
		httpx.ErrUnavailable.Write(w)
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrRejected),
		errors.Is(err, domain.ErrMalformedInput),
		errors.Is(err, domain.ErrNotProvisioned),
		errors.Is(err, domain.ErrPendingEnrollment):
		httpx.ErrInvalidCredentials.Write(w)
	case errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrInvalidSession),
		errors.Is(err, domain.ErrInactivePrincipal),
		errors.Is(err, domain.ErrUnauthenticated):
		httpx.WriteBearerError(w)
	case errors.Is(err, domain.ErrMFAAlreadyEnabled):
		httpx.ErrConflict.Write(w)
	case errors.Is(err, domain.ErrPrincipalNotFound):
		httpx.ErrNotFound.Write(w)
	default:
		log.Error(op+" failed", "error", err)
		httpx.ErrServerError.Write(w)
	}
}

// decodeBody decodes a JSON body into dst and answers 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "error", err)
		httpx.ErrInvalidRequest.Write(w)
		return false
	}
	return true
}
