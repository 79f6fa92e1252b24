package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// VerifierService decides whether a TOTP or backup code is acceptable for a
// principal. Outcomes describe the code; the error is only set when a
// collaborator failed, in which case the outcome is meaningless.
//
// Nothing here logs secrets or codes.
type VerifierService struct {
	Credentials store.Credentials
	Sealer      *cryptox.Sealer
	Engine      TOTPEngine
	Now         func() time.Time
}

// ConfirmEnrollment enables a pending credential when code matches.
func (s *VerifierService) ConfirmEnrollment(ctx context.Context, principalID, code string) (domain.Outcome, error) {
	cred, outcome, err := s.load(ctx, principalID)
	if err != nil || outcome != domain.OutcomeAccepted {
		return outcome, err
	}
	if cred.Enabled {
		return domain.OutcomeNotProvisioned, nil
	}

	outcome, err = s.matchTOTP(cred, code)
	if err != nil || outcome != domain.OutcomeAccepted {
		s.log(ctx, "mfa enrollment", principalID, outcome)
		return outcome, err
	}

	enabled, err := s.Credentials.EnableCredential(ctx, principalID, s.now())
	if err != nil {
		return domain.OutcomeRejected, unavailable(err)
	}
	if !enabled {
		// Confirmed or reset by someone else since we read it.
		return domain.OutcomeNotProvisioned, nil
	}

	s.log(ctx, "mfa enrollment", principalID, domain.OutcomeEnrolled)
	return domain.OutcomeEnrolled, nil
}

// VerifyLogin checks a TOTP code against an enabled credential. It never
// mutates state, so a code stays valid for its whole window.
func (s *VerifierService) VerifyLogin(ctx context.Context, principalID, code string) (domain.Outcome, error) {
	cred, outcome, err := s.loadEnabled(ctx, principalID)
	if err != nil || outcome != domain.OutcomeAccepted {
		return outcome, err
	}

	outcome, err = s.matchTOTP(cred, code)
	s.log(ctx, "mfa totp login", principalID, outcome)
	return outcome, err
}

// VerifyBackupCode consumes a backup code. The store removes the code and
// reports presence in one step, so a code is accepted at most once.
func (s *VerifierService) VerifyBackupCode(ctx context.Context, principalID, code string) (domain.Outcome, error) {
	_, outcome, err := s.loadEnabled(ctx, principalID)
	if err != nil || outcome != domain.OutcomeAccepted {
		return outcome, err
	}

	canonical, ok := canonicalBackupCode(code)
	if !ok {
		return domain.OutcomeMalformed, nil
	}

	consumed, err := s.Credentials.TryConsumeBackupCode(ctx, principalID, backupCodeFingerprint(canonical))
	if err != nil {
		return domain.OutcomeRejected, unavailable(err)
	}

	outcome = domain.OutcomeRejected
	if consumed {
		outcome = domain.OutcomeAccepted
	}
	s.log(ctx, "mfa backup code", principalID, outcome)
	return outcome, nil
}

// load returns OutcomeAccepted as "credential found".
func (s *VerifierService) load(ctx context.Context, principalID string) (domain.MFACredential, domain.Outcome, error) {
	cred, err := s.Credentials.GetCredential(ctx, principalID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.MFACredential{}, domain.OutcomeNotProvisioned, nil
	case err != nil:
		return domain.MFACredential{}, domain.OutcomeRejected, unavailable(err)
	}
	return cred, domain.OutcomeAccepted, nil
}

func (s *VerifierService) loadEnabled(ctx context.Context, principalID string) (domain.MFACredential, domain.Outcome, error) {
	cred, outcome, err := s.load(ctx, principalID)
	if err != nil || outcome != domain.OutcomeAccepted {
		return cred, outcome, err
	}
	if !cred.Enabled {
		return domain.MFACredential{}, domain.OutcomePendingEnrollment, nil
	}
	return cred, domain.OutcomeAccepted, nil
}

func (s *VerifierService) matchTOTP(cred domain.MFACredential, code string) (domain.Outcome, error) {
	normalized, ok := normalizeTOTPCode(code)
	if !ok {
		return domain.OutcomeMalformed, nil
	}

	secret, err := s.Sealer.Open(cred.SealedSecret, []byte(cred.PrincipalID))
	if err != nil {
		return domain.OutcomeRejected, fmt.Errorf("open totp secret: %w", err)
	}

	if s.Engine.Match(secret, normalized, s.Engine.Step(s.now())) {
		return domain.OutcomeAccepted, nil
	}
	return domain.OutcomeRejected, nil
}

func (s *VerifierService) log(ctx context.Context, msg, principalID string, outcome domain.Outcome) {
	slogx.FromContext(ctx).Debug(msg, "principal_id", principalID, "outcome", outcome.String())
}

func (s *VerifierService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
