package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/pkg/adminsdk"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/aussiebroadwan/backoffice/pkg/qrcode"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// LoginHandler handles POST /v1/session/login.
//
// A principal with MFA enabled gets 200 and a session when the code or
// backup code is valid, 409 mfa_required when neither was sent. A principal
// without an enabled credential gets 202 with a fresh provisioning bundle
// and an mfa_token for /v1/mfa/confirm.
type LoginHandler struct {
	LoginService *service.LoginService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" || (req.Code != "" && req.BackupCode != "") {
		httpx.ErrInvalidRequest.Write(w)
		return
	}

	res, err := h.LoginService.Login(r.Context(), service.LoginRequest{
		Username:   req.Username,
		Password:   req.Password,
		Code:       req.Code,
		BackupCode: req.BackupCode,
	})
	if errors.Is(err, domain.ErrMFARequired) {
		httpx.WriteJSON(w, http.StatusConflict, adminsdk.MFARequiredResponse{
			Error:            adminsdk.ErrorCodeMFARequired,
			ErrorDescription: "a TOTP code or backup code is required",
			Methods:          []string{adminsdk.MethodTOTP, adminsdk.MethodBackupCode},
		})
		return
	}
	if err != nil {
		writeServiceError(w, r, "login", err)
		return
	}

	if res.Session != nil {
		httpx.WriteJSON(w, http.StatusOK, sessionResponse(*res.Session))
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, adminsdk.EnrollmentResponse{
		MFAToken:          res.MFAToken,
		MFATokenExpiresAt: res.MFATokenExpiresAt,
		Provisioning:      provisioningResponse(r, *res.Bundle),
	})
}

func sessionResponse(tok domain.SessionToken) adminsdk.SessionResponse {
	return adminsdk.SessionResponse{
		Token:       tok.Raw,
		TokenType:   "Bearer",
		ExpiresIn:   int(tok.ExpiresAt.Sub(tok.IssuedAt) / time.Second),
		ExpiresAt:   tok.ExpiresAt,
		PrincipalID: tok.SubjectID,
		Role:        tok.Role,
	}
}

// provisioningResponse renders the bundle with its QR code. A QR failure
// only drops the image; the URI and secret still let the user enroll.
func provisioningResponse(r *http.Request, b domain.ProvisioningBundle) *adminsdk.ProvisioningResponse {
	qr, err := qrcode.DataURI(b.EnrollmentURI, qrcode.DefaultSize)
	if err != nil {
		slogx.FromContext(r.Context()).Warn("failed to render enrollment QR code", "error", err)
	}
	return &adminsdk.ProvisioningResponse{
		Secret:        b.Secret,
		EnrollmentURI: b.EnrollmentURI,
		QRCode:        qr,
		BackupCodes:   b.BackupCodes,
	}
}
