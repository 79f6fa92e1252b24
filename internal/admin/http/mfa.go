package http

import (
	"net/http"

	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/pkg/adminsdk"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

// MFAHandler handles enrollment and the MFA status of the caller.
type MFAHandler struct {
	LoginService   *service.LoginService
	AccountService *service.AccountService
}

// HandleProvision handles POST /v1/mfa/provision. It replaces the pending
// secret and backup codes of the principal behind the mfa_token.
func (h *MFAHandler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.MFATokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MFAToken == "" {
		httpx.ErrInvalidRequest.Write(w)
		return
	}

	bundle, err := h.LoginService.Provision(r.Context(), req.MFAToken)
	if err != nil {
		writeServiceError(w, r, "provision", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, provisioningResponse(r, bundle))
}

// HandleConfirm handles POST /v1/mfa/confirm. The first valid code enables
// the credential and returns the principal's first session.
func (h *MFAHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.ConfirmRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MFAToken == "" || req.Code == "" {
		httpx.ErrInvalidRequest.Write(w)
		return
	}

	tok, err := h.LoginService.Confirm(r.Context(), req.MFAToken, req.Code)
	if err != nil {
		writeServiceError(w, r, "confirm enrollment", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse(tok))
}

// HandleStatus handles GET /v1/mfa/status.
func (h *MFAHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	principalID, _, _ := httpx.PrincipalFromContext(r.Context())

	status, err := h.AccountService.MFAStatus(r.Context(), principalID)
	if err != nil {
		writeServiceError(w, r, "mfa status", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, adminsdk.MFAStatusResponse{
		Provisioned:          status.Provisioned,
		Enabled:              status.Enabled,
		EnabledAt:            status.EnabledAt,
		BackupCodesRemaining: status.BackupCodesRemaining,
	})
}
