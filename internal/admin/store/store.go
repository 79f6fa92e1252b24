package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict reports a conditional write whose precondition did not
	// hold, e.g. replacing a credential that has already been enabled.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Sub-repositories keep concerns apart and make it obvious
// which calls run inside a transaction.
type Store interface {
	Principals() Principals
	Credentials() Credentials
	Challenges() Challenges

	ApplyMigrations(ctx context.Context) error

	// WithTx runs fn in a transaction, committing when fn returns nil. A
	// transaction that lost a serialization race returns ErrConflict.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Principals() Principals
	Credentials() Credentials
	Challenges() Challenges
}

// Principals is read by the MFA core and written by bootstrap and the admin
// routes.
type Principals interface {
	GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error)
	GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error)

	// CreatePrincipal returns ErrAlreadyExists on a duplicate username.
	CreatePrincipal(ctx context.Context, p domain.Principal) error

	SetPrincipalActive(ctx context.Context, id string, active bool, at time.Time) error
	IsEmpty(ctx context.Context) (bool, error)
}

// Credentials persists MFA credentials and their backup codes. The redis
// driver implements this interface on its own so credentials can live in a
// shared cache while principals stay in SQL.
type Credentials interface {
	// GetCredential returns ErrNotFound when the principal has none. The
	// BackupCodes field is not populated.
	GetCredential(ctx context.Context, principalID string) (domain.MFACredential, error)

	// ReplacePendingCredential atomically stores cred (Enabled must be false)
	// and its backup codes, discarding any earlier pending credential and
	// codes. It returns ErrConflict if an enabled credential exists.
	ReplacePendingCredential(ctx context.Context, cred domain.MFACredential) error

	// EnableCredential flips a pending credential to enabled. It returns
	// false when no pending credential existed at the time of the write.
	EnableCredential(ctx context.Context, principalID string, at time.Time) (bool, error)

	// TryConsumeBackupCode removes codeHash and reports whether it was
	// present. Concurrent callers with the same code see exactly one true.
	TryConsumeBackupCode(ctx context.Context, principalID, codeHash string) (bool, error)

	CountBackupCodes(ctx context.Context, principalID string) (int, error)

	// DeleteCredential removes the credential and its codes. Idempotent.
	DeleteCredential(ctx context.Context, principalID string) error

	// DeletePendingCredentialsBefore purges unconfirmed credentials created
	// before cutoff and returns how many were removed.
	DeletePendingCredentialsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Ping(ctx context.Context) error
}

type Challenges interface {
	CreateChallenge(ctx context.Context, c domain.LoginChallenge) error

	// GetChallengeByTokenHash returns ErrNotFound if missing or expired at now.
	GetChallengeByTokenHash(ctx context.Context, tokenHash string, now time.Time) (domain.LoginChallenge, error)

	DeleteChallengesForPrincipal(ctx context.Context, principalID string) error
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
}
