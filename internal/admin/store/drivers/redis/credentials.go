package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "backoffice:mfa"

// Keys per principal:
//
//	<prefix>:cred:{id}   hash  sealed_secret, enabled, created_at, enabled_at
//	<prefix>:codes:{id}  set   backup code fingerprints
//	<prefix>:pending     zset  principal ids scored by created_at (unix ms)
var (
	replaceScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'enabled') == '1' then
	return 0
end
redis.call('DEL', KEYS[1], KEYS[2])
redis.call('HSET', KEYS[1], 'sealed_secret', ARGV[1], 'enabled', '0', 'created_at', ARGV[2])
for i = 4, #ARGV do
	redis.call('SADD', KEYS[2], ARGV[i])
end
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[3])
return 1
`)

	enableScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'enabled') ~= '0' then
	return 0
end
redis.call('HSET', KEYS[1], 'enabled', '1', 'enabled_at', ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[2])
return 1
`)

	deletePendingScript = redis.NewScript(`
redis.call('ZREM', KEYS[3], ARGV[2])
if redis.call('HGET', KEYS[1], 'enabled') ~= '0' then
	return 0
end
local created = tonumber(redis.call('HGET', KEYS[1], 'created_at'))
if created == nil or created >= tonumber(ARGV[1]) then
	redis.call('ZADD', KEYS[3], created or 0, ARGV[2])
	return 0
end
redis.call('DEL', KEYS[1], KEYS[2])
return 1
`)
)

// CredentialStore implements store.Credentials on a single Redis node.
type CredentialStore struct {
	client redis.UniversalClient
	prefix string
}

var _ store.Credentials = (*CredentialStore)(nil)

func NewCredentialStore(client redis.UniversalClient, prefix string) *CredentialStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &CredentialStore{client: client, prefix: prefix}
}

func (s *CredentialStore) credKey(id string) string  { return s.prefix + ":cred:{" + id + "}" }
func (s *CredentialStore) codesKey(id string) string { return s.prefix + ":codes:{" + id + "}" }
func (s *CredentialStore) pendingKey() string        { return s.prefix + ":pending" }

func (s *CredentialStore) GetCredential(ctx context.Context, principalID string) (domain.MFACredential, error) {
	fields, err := s.client.HGetAll(ctx, s.credKey(principalID)).Result()
	if err != nil {
		return domain.MFACredential{}, err
	}
	if len(fields) == 0 {
		return domain.MFACredential{}, store.ErrNotFound
	}

	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return domain.MFACredential{}, err
	}
	c := domain.MFACredential{
		PrincipalID:  principalID,
		SealedSecret: []byte(fields["sealed_secret"]),
		Enabled:      fields["enabled"] == "1",
		CreatedAt:    time.UnixMilli(created).UTC(),
	}
	if raw, ok := fields["enabled_at"]; ok && raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.MFACredential{}, err
		}
		at := time.UnixMilli(ms).UTC()
		c.EnabledAt = &at
	}
	return c, nil
}

func (s *CredentialStore) ReplacePendingCredential(ctx context.Context, cred domain.MFACredential) error {
	args := make([]any, 0, 3+len(cred.BackupCodes))
	args = append(args, cred.SealedSecret, cred.CreatedAt.UnixMilli(), cred.PrincipalID)
	for _, h := range cred.BackupCodes {
		args = append(args, h)
	}

	keys := []string{s.credKey(cred.PrincipalID), s.codesKey(cred.PrincipalID), s.pendingKey()}
	n, err := replaceScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (s *CredentialStore) EnableCredential(ctx context.Context, principalID string, at time.Time) (bool, error) {
	keys := []string{s.credKey(principalID), s.pendingKey()}
	n, err := enableScript.Run(ctx, s.client, keys, at.UnixMilli(), principalID).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *CredentialStore) TryConsumeBackupCode(ctx context.Context, principalID, codeHash string) (bool, error) {
	n, err := s.client.SRem(ctx, s.codesKey(principalID), codeHash).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *CredentialStore) CountBackupCodes(ctx context.Context, principalID string) (int, error) {
	n, err := s.client.SCard(ctx, s.codesKey(principalID)).Result()
	return int(n), err
}

func (s *CredentialStore) DeleteCredential(ctx context.Context, principalID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.credKey(principalID), s.codesKey(principalID))
		pipe.ZRem(ctx, s.pendingKey(), principalID)
		return nil
	})
	return err
}

func (s *CredentialStore) DeletePendingCredentialsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ms := cutoff.UnixMilli()
	ids, err := s.client.ZRangeByScore(ctx, s.pendingKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(ms, 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, id := range ids {
		keys := []string{s.credKey(id), s.codesKey(id), s.pendingKey()}
		n, err := deletePendingScript.Run(ctx, s.client, keys, ms, id).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return removed, err
		}
		removed += int64(n)
	}
	return removed, nil
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
