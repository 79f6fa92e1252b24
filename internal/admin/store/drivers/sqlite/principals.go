package sqlite

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
	var (
		p                domain.Principal
		active           int
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.Role, &active, &created, &updated); err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	p.Active = active == 1
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	return scanPrincipal(r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id))
}

func (r *principalsRepo) GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error) {
	return scanPrincipal(r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE username = ?`, username))
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO principals (`+principalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Username, p.PasswordHash, p.Role, boolToInt(p.Active),
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *principalsRepo) SetPrincipalActive(ctx context.Context, id string, active bool, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE principals SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), toMillis(at), id,
	)
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
	var exists int
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM principals)`).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 0, nil
}
