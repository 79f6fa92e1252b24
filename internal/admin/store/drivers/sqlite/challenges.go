package sqlite

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
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.PrincipalID, c.TokenHash, toMillis(c.CreatedAt), toMillis(c.ExpiresAt),
	)
	return mapConstraint(err)
}

func (r *challengesRepo) GetChallengeByTokenHash(ctx context.Context, tokenHash string, now time.Time) (domain.LoginChallenge, error) {
	var (
		c                domain.LoginChallenge
		created, expires int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, principal_id, token_hash, created_at, expires_at
		FROM login_challenges WHERE token_hash = ? AND expires_at > ?`,
		tokenHash, toMillis(now),
	).Scan(&c.ID, &c.PrincipalID, &c.TokenHash, &created, &expires)
	if err != nil {
		return domain.LoginChallenge{}, mapNotFound(err)
	}
	c.CreatedAt = fromMillis(created)
	c.ExpiresAt = fromMillis(expires)
	return c, nil
}

func (r *challengesRepo) DeleteChallengesForPrincipal(ctx context.Context, principalID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM login_challenges WHERE principal_id = ?`, principalID)
	return err
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM login_challenges WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
