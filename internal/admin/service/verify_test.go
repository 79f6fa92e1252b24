package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/stretchr/testify/require"
)

func TestVerifyLoginKnownVector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.addPrincipal(t, "p1", "alice", "pw", true)
	h.enrollKnownSecret(t, "p1", vectorSecret)

	outcome, err := h.verifier.VerifyLogin(ctx, "p1", "324550")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAccepted, outcome)

	// Stateless: the same code matches again in its window.
	outcome, err = h.verifier.VerifyLogin(ctx, "p1", "324 550")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAccepted, outcome)

	h.clock.Set(vectorInstant.Add(121 * time.Second))
	outcome, err = h.verifier.VerifyLogin(ctx, "p1", "324550")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRejected, outcome)

	h.clock.Set(vectorInstant.Add(-121 * time.Second))
	outcome, err = h.verifier.VerifyLogin(ctx, "p1", "324550")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRejected, outcome)
}

func TestVerifyLoginWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.addPrincipal(t, "p1", "alice", "pw", true)
	h.enrollKnownSecret(t, "p1", vectorSecret)

	var e TOTPEngine
	genStep := e.Step(vectorInstant)
	code := e.Generate(vectorSecret, genStep)
	stepStart := time.Unix(genStep*totpPeriod, 0)

	for offset := int64(-5); offset <= 5; offset++ {
		h.clock.Set(stepStart.Add(time.Duration(offset*totpPeriod) * time.Second))
		outcome, err := h.verifier.VerifyLogin(ctx, "p1", code)
		require.NoError(t, err)

		want := domain.OutcomeRejected
		if offset >= -3 && offset <= 3 {
			want = domain.OutcomeAccepted
		}
		require.Equal(t, want, outcome, "verifier clock at step t%+d", offset)
	}
}

func TestVerifyLoginStates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.addPrincipal(t, "none", "none", "pw", true)
	h.addPrincipal(t, "pending", "pending", "pw", true)
	h.addPrincipal(t, "enabled", "enabled", "pw", true)
	h.enrollKnownSecret(t, "enabled", vectorSecret)

	_, err := h.prov.Provision(ctx, "pending", "pending")
	require.NoError(t, err)

	tests := []struct {
		name      string
		principal string
		code      string
		want      domain.Outcome
	}{
		{"no credential", "none", "324550", domain.OutcomeNotProvisioned},
		{"pending credential", "pending", "324550", domain.OutcomePendingEnrollment},
		{"wrong code", "enabled", "000000", domain.OutcomeRejected},
		{"too short", "enabled", "32455", domain.OutcomeMalformed},
		{"letters", "enabled", "abcdef", domain.OutcomeMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := h.verifier.VerifyLogin(ctx, tt.principal, tt.code)
			require.NoError(t, err)
			require.Equal(t, tt.want, outcome)
		})
	}
}

func TestConfirmEnrollment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.addPrincipal(t, "p1", "alice", "pw", true)

	t.Run("no credential", func(t *testing.T) {
		outcome, err := h.verifier.ConfirmEnrollment(ctx, "p1", "123456")
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeNotProvisioned, outcome)
	})

	secret := provisionAndOpen(t, h, "p1")
	var e TOTPEngine

	t.Run("wrong code leaves credential pending", func(t *testing.T) {
		wrong := e.Generate(secret, e.Step(h.clock.Now())+10)
		outcome, err := h.verifier.ConfirmEnrollment(ctx, "p1", wrong)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeRejected, outcome)

		cred, err := h.store.Credentials().GetCredential(ctx, "p1")
		require.NoError(t, err)
		require.False(t, cred.Enabled)
	})

	t.Run("malformed", func(t *testing.T) {
		outcome, err := h.verifier.ConfirmEnrollment(ctx, "p1", "12345x")
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeMalformed, outcome)
	})

	t.Run("correct code enables", func(t *testing.T) {
		code := e.Generate(secret, e.Step(h.clock.Now()))
		outcome, err := h.verifier.ConfirmEnrollment(ctx, "p1", code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeEnrolled, outcome)

		cred, err := h.store.Credentials().GetCredential(ctx, "p1")
		require.NoError(t, err)
		require.True(t, cred.Enabled)
		require.NotNil(t, cred.EnabledAt)
	})

	t.Run("already enabled", func(t *testing.T) {
		code := e.Generate(secret, e.Step(h.clock.Now()))
		outcome, err := h.verifier.ConfirmEnrollment(ctx, "p1", code)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeNotProvisioned, outcome)

		cred, err := h.store.Credentials().GetCredential(ctx, "p1")
		require.NoError(t, err)
		require.True(t, cred.Enabled)
	})
}

func TestVerifyBackupCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.addPrincipal(t, "p1", "alice", "pw", true)
	h.enrollKnownSecret(t, "p1", vectorSecret, "ABCDE-FGHJK", "KLMNP-QRSTU")

	outcome, err := h.verifier.VerifyBackupCode(ctx, "p1", "abcde fghjk")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAccepted, outcome)

	outcome, err = h.verifier.VerifyBackupCode(ctx, "p1", "ABCDE-FGHJK")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRejected, outcome)

	outcome, err = h.verifier.VerifyBackupCode(ctx, "p1", "ZZZZZ-ZZZZZ")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRejected, outcome)

	outcome, err = h.verifier.VerifyBackupCode(ctx, "p1", "short")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeMalformed, outcome)

	remaining, err := h.store.Credentials().CountBackupCodes(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
}

func TestVerifyBackupCodeConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.addPrincipal(t, "p1", "alice", "pw", true)
	h.enrollKnownSecret(t, "p1", vectorSecret, "ABCDE-FGHJK")

	const attempts = 2
	outcomes := make([]domain.Outcome, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], errs[i] = h.verifier.VerifyBackupCode(ctx, "p1", "ABCDE-FGHJK")
		}()
	}
	wg.Wait()

	accepted := 0
	for i := range attempts {
		require.NoError(t, errs[i])
		if outcomes[i] == domain.OutcomeAccepted {
			accepted++
		} else {
			require.Equal(t, domain.OutcomeRejected, outcomes[i])
		}
	}
	require.Equal(t, 1, accepted)
}

type failingCredentials struct {
	store.Credentials
}

var errBackendDown = errors.New("backend down")

func (failingCredentials) GetCredential(context.Context, string) (domain.MFACredential, error) {
	return domain.MFACredential{}, errBackendDown
}

func TestVerifierStoreFailure(t *testing.T) {
	t.Parallel()
	v := &VerifierService{Credentials: failingCredentials{}}

	_, err := v.VerifyLogin(context.Background(), "p1", "324550")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.ErrorIs(t, err, errBackendDown)

	_, err = v.VerifyBackupCode(context.Background(), "p1", "ABCDE-FGHJK")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = v.ConfirmEnrollment(context.Background(), "p1", "324550")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
