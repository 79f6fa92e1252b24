package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
)

type challengesRepo struct {
	q dbtx
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.LoginChallenge) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_challenges (id, principal_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.PrincipalID, c.TokenHash, c.CreatedAt, c.ExpiresAt,
	)
	return mapConstraint(err)
}

func (r *challengesRepo) GetChallengeByTokenHash(ctx context.Context, tokenHash string, now time.Time) (domain.LoginChallenge, error) {
	var c domain.LoginChallenge
	err := r.q.QueryRowContext(ctx, `
		SELECT id, principal_id, token_hash, created_at, expires_at
		FROM login_challenges WHERE token_hash = $1 AND expires_at > $2`,
		tokenHash, now,
	).Scan(&c.ID, &c.PrincipalID, &c.TokenHash, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		return domain.LoginChallenge{}, mapNotFound(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	return c, nil
}

func (r *challengesRepo) DeleteChallengesForPrincipal(ctx context.Context, principalID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM login_challenges WHERE principal_id = $1`, principalID)
	return err
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM login_challenges WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
