package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

type renewedTokenKey struct{}

// SessionMiddleware runs the gate on every request. Accepted requests carry
// the principal and the renewed token on the context; ExposeRenewedToken
// writes the token out. Every refusal, whatever its cause, gets the same 401
// body.
func SessionMiddleware(gate *service.Gate) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			res, err := gate.Authenticate(ctx, httpx.ExtractToken(r))
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrUnauthenticated),
				errors.Is(err, domain.ErrInvalidSession),
				errors.Is(err, domain.ErrInactivePrincipal):
				log.Info("session refused", "reason", err.Error())
				httpx.WriteBearerError(w)
				return
			case errors.Is(err, domain.ErrStoreUnavailable):
				log.Error("session check failed", "error", err)
				httpx.ErrUnavailable.Write(w)
				return
			default:
				log.Error("session renewal failed", "error", err)
				httpx.ErrServerError.Write(w)
				return
			}

			ctx = context.WithValue(ctx, renewedTokenKey{}, res.Renewed.Raw)
			ctx = httpx.WithPrincipal(ctx, res.PrincipalID, res.Role)
			ctx = slogx.With(ctx, "principal_id", res.PrincipalID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExposeRenewedToken sets the X-Token response header from the token
// SessionMiddleware renewed. It goes last in a chain, after role checks and
// rate limits, so refused requests do not hand out a fresh token.
func ExposeRenewedToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := r.Context().Value(renewedTokenKey{}).(string); ok {
			w.Header().Set(httpx.TokenHeader, raw)
		}
		next.ServeHTTP(w, r)
	})
}
