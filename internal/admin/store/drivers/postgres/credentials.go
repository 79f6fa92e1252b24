package postgres

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
		enabledAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT principal_id, sealed_secret, enabled, created_at, enabled_at
		FROM mfa_credentials WHERE principal_id = $1`, principalID,
	).Scan(&c.PrincipalID, &c.SealedSecret, &c.Enabled, &c.CreatedAt, &enabledAt)
	if err != nil {
		return domain.MFACredential{}, mapNotFound(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.EnabledAt = utcPtr(enabledAt)
	return c, nil
}

func (r *credentialsRepo) ReplacePendingCredential(ctx context.Context, cred domain.MFACredential) error {
	return r.atomic(ctx, func(q dbtx) error {
		res, err := q.ExecContext(ctx, `
			INSERT INTO mfa_credentials (principal_id, sealed_secret, enabled, created_at, enabled_at)
			VALUES ($1, $2, FALSE, $3, NULL)
			ON CONFLICT (principal_id) DO UPDATE SET
				sealed_secret = EXCLUDED.sealed_secret,
				created_at    = EXCLUDED.created_at,
				enabled_at    = NULL
			WHERE NOT mfa_credentials.enabled`,
			cred.PrincipalID, cred.SealedSecret, cred.CreatedAt,
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
			`DELETE FROM mfa_backup_codes WHERE principal_id = $1`, cred.PrincipalID); err != nil {
			return err
		}
		if len(cred.BackupCodes) == 0 {
			return nil
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO mfa_backup_codes (principal_id, code_hash) SELECT $1, unnest($2::text[])`,
			cred.PrincipalID, cred.BackupCodes,
		)
		return mapConstraint(err)
	})
}

func (r *credentialsRepo) EnableCredential(ctx context.Context, principalID string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE mfa_credentials SET enabled = TRUE, enabled_at = $1 WHERE principal_id = $2 AND NOT enabled`,
		at, principalID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *credentialsRepo) TryConsumeBackupCode(ctx context.Context, principalID, codeHash string) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM mfa_backup_codes WHERE principal_id = $1 AND code_hash = $2`,
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
		`SELECT COUNT(*) FROM mfa_backup_codes WHERE principal_id = $1`, principalID,
	).Scan(&n)
	return n, err
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, principalID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM mfa_credentials WHERE principal_id = $1`, principalID)
	return err
}

func (r *credentialsRepo) DeletePendingCredentialsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM mfa_credentials WHERE NOT enabled AND created_at < $1`, cutoff)
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
