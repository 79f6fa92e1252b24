package httpx

import "context"

type ctxKey string

const (
	CtxKeyPrincipalID ctxKey = "principal_id"
	CtxKeyRole        ctxKey = "role"
)

// WithPrincipal stores the authenticated principal on ctx.
func WithPrincipal(ctx context.Context, principalID, role string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyPrincipalID, principalID)
	return context.WithValue(ctx, CtxKeyRole, role)
}

// PrincipalFromContext returns the principal ID and role set by the session
// middleware. ok is false on unauthenticated requests.
func PrincipalFromContext(ctx context.Context) (principalID, role string, ok bool) {
	principalID, _ = ctx.Value(CtxKeyPrincipalID).(string)
	role, _ = ctx.Value(CtxKeyRole).(string)
	return principalID, role, principalID != ""
}
