package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
)

type credentialsRepo struct {
	db *sql.DB // nil inside a transaction
	q  dbtx
}

// atomic runs fn in its own transaction unless the repo is already bound to
// one.
func (r *credentialsRepo) atomic(ctx context.Context, fn func(q dbtx) error) error {
	if r.db == nil {
		return fn(r.q)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *credentialsRepo) GetCredential(ctx context.Context, principalID string) (domain.MFACredential, error) {
	var (
		c         domain.MFACredential
		enabled   int
		created   int64
		enabledAt sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT principal_id, sealed_secret, enabled, created_at, enabled_at
		FROM mfa_credentials WHERE principal_id = ?`, principalID,
	).Scan(&c.PrincipalID, &c.SealedSecret, &enabled, &created, &enabledAt)
	if err != nil {
		return domain.MFACredential{}, mapNotFound(err)
	}

	c.Enabled = enabled == 1
	c.CreatedAt = fromMillis(created)
	c.EnabledAt = fromNullMillis(enabledAt)
	return c, nil
}

func (r *credentialsRepo) ReplacePendingCredential(ctx context.Context, cred domain.MFACredential) error {
	return r.atomic(ctx, func(q dbtx) error {
		res, err := q.ExecContext(ctx, `
			INSERT INTO mfa_credentials (principal_id, sealed_secret, enabled, created_at, enabled_at)
			VALUES (?, ?, 0, ?, NULL)
			ON CONFLICT (principal_id) DO UPDATE SET
				sealed_secret = excluded.sealed_secret,
				created_at    = excluded.created_at,
				enabled_at    = NULL
			WHERE mfa_credentials.enabled = 0`,
			cred.PrincipalID, cred.SealedSecret, toMillis(cred.CreatedAt),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrConflict
		}

		if _, err := q.ExecContext(ctx,
			`DELETE FROM mfa_backup_codes WHERE principal_id = ?`, cred.PrincipalID); err != nil {
			return err
		}
		for _, hash := range cred.BackupCodes {
			if _, err := q.ExecContext(ctx,
				`INSERT INTO mfa_backup_codes (principal_id, code_hash) VALUES (?, ?)`,
				cred.PrincipalID, hash,
			); err != nil {
				return mapConstraint(err)
			}
		}
		return nil
	})
}

func (r *credentialsRepo) EnableCredential(ctx context.Context, principalID string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE mfa_credentials SET enabled = 1, enabled_at = ? WHERE principal_id = ? AND enabled = 0`,
		toMillis(at), principalID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *credentialsRepo) TryConsumeBackupCode(ctx context.Context, principalID, codeHash string) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM mfa_backup_codes WHERE principal_id = ? AND code_hash = ?`,
		principalID, codeHash,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *credentialsRepo) CountBackupCodes(ctx context.Context, principalID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mfa_backup_codes WHERE principal_id = ?`, principalID,
	).Scan(&n)
	return n, err
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, principalID string) error {
	// Backup codes go with the credential via ON DELETE CASCADE.
	_, err := r.q.ExecContext(ctx, `DELETE FROM mfa_credentials WHERE principal_id = ?`, principalID)
	return err
}

func (r *credentialsRepo) DeletePendingCredentialsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM mfa_credentials WHERE enabled = 0 AND created_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *credentialsRepo) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}
