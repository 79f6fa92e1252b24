package httpx

import (
	"net/http"
	"slices"
)

// RequireRole lets the request through only when the session middleware
// stored one of roles on the context.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, role, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteBearerError(w)
				return
			}
			if !slices.Contains(roles, role) {
				ErrForbidden.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
