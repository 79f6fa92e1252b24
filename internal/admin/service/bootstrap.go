package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/idx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

var ErrBootstrapIncomplete = errors.New("bootstrap: username and password are both required")

// BootstrapService creates the first admin on an empty principal store.
type BootstrapService struct {
	Store     store.Store
	Passwords cryptox.PasswordHasher
	Now       func() time.Time
}

// EnsureAdmin creates an active admin named username when no principal
// exists yet. It reports whether one was created. Empty credentials skip
// bootstrap; half-configured credentials are an error.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	l := slogx.FromContext(ctx)

	if username == "" && password == "" {
		return false, nil
	}
	if username == "" || password == "" {
		return false, ErrBootstrapIncomplete
	}

	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash bootstrap password: %w", err)
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	admin := domain.Principal{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The emptiness check and the insert share a transaction so two
	// replicas starting together cannot both create an admin.
	var created bool
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Principals().IsEmpty(ctx)
		if err != nil || !empty {
			return err
		}
		if err := tx.Principals().CreatePrincipal(ctx, admin); err != nil {
			return err
		}
		created = true
		return nil
	})
	switch {
	case errors.Is(err, store.ErrAlreadyExists), errors.Is(err, store.ErrConflict):
		// Another replica won the race.
		return false, nil
	case err != nil:
		return false, unavailable(err)
	case !created:
		l.Debug("principals exist, skipping bootstrap")
		return false, nil
	}

	l.Info("bootstrap admin created", "principal_id", admin.ID, "username", username)
	return true, nil
}
