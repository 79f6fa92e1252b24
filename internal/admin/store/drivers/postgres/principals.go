package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
)

type principalsRepo struct {
	q dbtx
}

const principalColumns = `id, username, password_hash, role, active, created_at, updated_at`

func scanPrincipal(row interface{ Scan(...any) error }) (domain.Principal, error) {
	var p domain.Principal
	if err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.Role, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	return scanPrincipal(r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = $1`, id))
}

func (r *principalsRepo) GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error) {
	return scanPrincipal(r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE username = $1`, username))
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO principals (`+principalColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Username, p.PasswordHash, p.Role, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *principalsRepo) SetPrincipalActive(ctx context.Context, id string, active bool, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE principals SET active = $1, updated_at = $2 WHERE id = $3`, active, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *principalsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM principals)`).Scan(&exists)
	return !exists, err
}
