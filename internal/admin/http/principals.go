package http

import (
	"net/http"

	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

// PrincipalsHandler handles the administrative actions on principals.
type PrincipalsHandler struct {
	AccountService *service.AccountService
}

// HandleResetMFA handles DELETE /v1/admin/principals/{id}/mfa
func (h *PrincipalsHandler) HandleResetMFA(w http.ResponseWriter, r *http.Request) {
	actorID, _, _ := httpx.PrincipalFromContext(r.Context())

	if err := h.AccountService.ResetMFA(r.Context(), actorID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, "reset mfa", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeactivate handles POST /v1/admin/principals/{id}/deactivate
func (h *PrincipalsHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// HandleActivate handles POST /v1/admin/principals/{id}/activate
func (h *PrincipalsHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *PrincipalsHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	actorID, _, _ := httpx.PrincipalFromContext(r.Context())
	targetID := r.PathValue("id")

	// An admin locking themselves out would leave no one to undo it.
	if !active && targetID == actorID {
		httpx.ErrConflict.Write(w)
		return
	}

	if err := h.AccountService.SetActive(r.Context(), actorID, targetID, active); err != nil {
		writeServiceError(w, r, "set principal active", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
