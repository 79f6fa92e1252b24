package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// AccountService covers the self-service MFA status and the administrative
// actions on principals.
type AccountService struct {
	Store store.Store

	// Credentials is set when credentials live outside Store, e.g. in
	// redis. When nil, Store's credentials are used and a reset is a single
	// transaction.
	Credentials store.Credentials

	Now func() time.Time
}

func (s *AccountService) credentials(repos interface{ Credentials() store.Credentials }) store.Credentials {
	if s.Credentials != nil {
		return s.Credentials
	}
	return repos.Credentials()
}

func (s *AccountService) MFAStatus(ctx context.Context, principalID string) (domain.MFAStatus, error) {
	creds := s.credentials(s.Store)

	cred, err := creds.GetCredential(ctx, principalID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.MFAStatus{}, nil
	case err != nil:
		return domain.MFAStatus{}, unavailable(err)
	}

	remaining, err := creds.CountBackupCodes(ctx, principalID)
	if err != nil {
		return domain.MFAStatus{}, unavailable(err)
	}

	return domain.MFAStatus{
		Provisioned:          true,
		Enabled:              cred.Enabled,
		EnabledAt:            cred.EnabledAt,
		BackupCodesRemaining: remaining,
	}, nil
}

// ResetMFA deletes a principal's credential, backup codes and open login
// challenges. Their next login goes through enrollment again. The
// credential is deleted last, so a failure leaves everything in place.
func (s *AccountService) ResetMFA(ctx context.Context, actorID, principalID string) error {
	if err := s.requirePrincipal(ctx, principalID); err != nil {
		return err
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Challenges().DeleteChallengesForPrincipal(ctx, principalID); err != nil {
			return err
		}
		return s.credentials(tx).DeleteCredential(ctx, principalID)
	})
	if err != nil {
		return unavailable(err)
	}

	slogx.FromContext(ctx).Info("mfa reset", "principal_id", principalID, "actor_id", actorID)
	return nil
}

// SetActive (de)activates a principal. Deactivation takes effect on the
// next request through the gate, since every request reloads the principal.
func (s *AccountService) SetActive(ctx context.Context, actorID, principalID string, active bool) error {
	err := s.Store.Principals().SetPrincipalActive(ctx, principalID, active, s.now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrPrincipalNotFound
	case err != nil:
		return unavailable(err)
	}

	slogx.FromContext(ctx).Info("principal active flag changed",
		"principal_id", principalID, "actor_id", actorID, "active", active)
	return nil
}

func (s *AccountService) requirePrincipal(ctx context.Context, id string) error {
	_, err := s.Store.Principals().GetPrincipalByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrPrincipalNotFound
	case err != nil:
		return unavailable(err)
	}
	return nil
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
