package http

import (
	"net/http"

	"github.com/aussiebroadwan/backoffice/pkg/adminsdk"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

// SessionHandler handles GET /v1/session. The session middleware has
// already renewed the token.
type SessionHandler struct{}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principalID, role, _ := httpx.PrincipalFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, adminsdk.SessionInfoResponse{
		PrincipalID: principalID,
		Role:        role,
	})
}
