package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// GateResult is the identity behind an accepted request plus its renewed
// token.
type GateResult struct {
	PrincipalID string
	Role        string
	Renewed     domain.SessionToken
}

// Gate authenticates a request token:
//
//	no token                 -> domain.ErrUnauthenticated
//	bad signature or expired -> domain.ErrInvalidSession
//	unknown principal        -> domain.ErrInvalidSession
//	inactive principal       -> domain.ErrInactivePrincipal
//	store failure            -> domain.ErrStoreUnavailable
//
// Only success renews the token.
type Gate struct {
	Sessions   *SessionService
	Principals store.Principals
}

func (g *Gate) Authenticate(ctx context.Context, raw string) (GateResult, error) {
	if raw == "" {
		return GateResult{}, domain.ErrUnauthenticated
	}

	session, err := g.Sessions.Validate(raw)
	if err != nil {
		slogx.FromContext(ctx).Debug("session rejected", "error", err)
		return GateResult{}, domain.ErrInvalidSession
	}

	p, err := g.Principals.GetPrincipalByID(ctx, session.SubjectID())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return GateResult{}, domain.ErrInvalidSession
	case err != nil:
		return GateResult{}, unavailable(err)
	}
	if !p.Active {
		return GateResult{}, domain.ErrInactivePrincipal
	}

	renewed, err := g.Sessions.Renew(session)
	if err != nil {
		return GateResult{}, err
	}

	return GateResult{
		PrincipalID: session.SubjectID(),
		Role:        session.Role(),
		Renewed:     renewed,
	}, nil
}
