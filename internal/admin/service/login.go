package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/idx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

const DefaultChallengeTTL = 5 * time.Minute

// LoginRequest carries at most one of Code and BackupCode.
type LoginRequest struct {
	Username   string
	Password   string
	Code       string
	BackupCode string
}

// LoginResult holds either a session or a suspended login. A suspended login
// comes with an MFA token for the provision and confirm calls and, when the
// principal had no credential yet, the provisioning bundle.
type LoginResult struct {
	Session *domain.SessionToken

	MFAToken          string
	MFATokenExpiresAt time.Time
	Bundle            *domain.ProvisioningBundle
}

// LoginService runs the password step, then either MFA verification or the
// enrollment branch.
type LoginService struct {
	Principals   store.Principals
	Credentials  store.Credentials
	Challenges   store.Challenges
	Passwords    cryptox.PasswordHasher
	Provisioner  *ProvisionService
	Verifier     *VerifierService
	Sessions     *SessionService
	ChallengeTTL time.Duration
	Now          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *LoginService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	p, err := s.checkPassword(ctx, req.Username, req.Password)
	if err != nil {
		return LoginResult{}, err
	}

	cred, err := s.Credentials.GetCredential(ctx, p.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, unavailable(err)
	}
	if err != nil || !cred.Enabled {
		// Enrollment branch: provision (replacing any pending credential)
		// and suspend the login until the code is confirmed.
		bundle, err := s.Provisioner.Provision(ctx, p.ID, p.Username)
		if err != nil {
			return LoginResult{}, err
		}
		token, expiresAt, err := s.createChallenge(ctx, p.ID)
		if err != nil {
			return LoginResult{}, err
		}
		l.Info("login suspended for mfa enrollment", "principal_id", p.ID)
		return LoginResult{MFAToken: token, MFATokenExpiresAt: expiresAt, Bundle: &bundle}, nil
	}

	var (
		outcome domain.Outcome
		method  string
	)
	switch {
	case req.Code != "":
		outcome, err = s.Verifier.VerifyLogin(ctx, p.ID, req.Code)
		method = AMRTOTP
	case req.BackupCode != "":
		outcome, err = s.Verifier.VerifyBackupCode(ctx, p.ID, req.BackupCode)
		method = AMRBackup
	default:
		return LoginResult{}, domain.ErrMFARequired
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !outcome.OK() {
		l.Info("login rejected", "principal_id", p.ID, "outcome", outcome.String())
		return LoginResult{}, outcome.Err()
	}

	session, err := s.Sessions.Issue(p, AMRPassword, method)
	if err != nil {
		return LoginResult{}, err
	}
	l.Info("login succeeded", "principal_id", p.ID, "method", method)
	return LoginResult{Session: &session}, nil
}

// Provision issues a fresh bundle for the principal behind mfaToken,
// discarding the previous pending secret and codes.
func (s *LoginService) Provision(ctx context.Context, mfaToken string) (domain.ProvisioningBundle, error) {
	p, err := s.resolveChallenge(ctx, mfaToken)
	if err != nil {
		return domain.ProvisioningBundle{}, err
	}
	return s.Provisioner.Provision(ctx, p.ID, p.Username)
}

// Confirm finishes enrollment for the principal behind mfaToken and returns
// its first session token.
func (s *LoginService) Confirm(ctx context.Context, mfaToken, code string) (domain.SessionToken, error) {
	p, err := s.resolveChallenge(ctx, mfaToken)
	if err != nil {
		return domain.SessionToken{}, err
	}

	outcome, err := s.Verifier.ConfirmEnrollment(ctx, p.ID, code)
	if err != nil {
		return domain.SessionToken{}, err
	}
	if !outcome.OK() {
		return domain.SessionToken{}, outcome.Err()
	}

	if err := s.Challenges.DeleteChallengesForPrincipal(ctx, p.ID); err != nil {
		slogx.FromContext(ctx).Warn("failed to delete login challenges", "principal_id", p.ID, "error", err)
	}

	return s.Sessions.Issue(p, AMRPassword, AMRTOTP)
}

func (s *LoginService) checkPassword(ctx context.Context, username, password string) (domain.Principal, error) {
	p, err := s.Principals.GetPrincipalByUsername(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Burn the same argon2 work as a real check.
		_ = s.Passwords.Verify(password, s.dummy())
		return domain.Principal{}, domain.ErrInvalidCredentials
	case err != nil:
		return domain.Principal{}, unavailable(err)
	}

	if err := s.Passwords.Verify(password, p.PasswordHash); err != nil {
		return domain.Principal{}, domain.ErrInvalidCredentials
	}
	if !p.Active {
		return domain.Principal{}, domain.ErrInvalidCredentials
	}
	return p, nil
}

func (s *LoginService) createChallenge(ctx context.Context, principalID string) (string, time.Time, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	ttl := s.ChallengeTTL
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	c := domain.LoginChallenge{
		ID:          idx.NewAt(now).String(),
		PrincipalID: principalID,
		TokenHash:   cryptox.FingerprintToken(token),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := s.Challenges.CreateChallenge(ctx, c); err != nil {
		return "", time.Time{}, unavailable(err)
	}
	return token, c.ExpiresAt, nil
}

func (s *LoginService) resolveChallenge(ctx context.Context, mfaToken string) (domain.Principal, error) {
	if mfaToken == "" {
		return domain.Principal{}, domain.ErrChallengeNotFound
	}

	c, err := s.Challenges.GetChallengeByTokenHash(ctx, cryptox.FingerprintToken(mfaToken), s.now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.Principal{}, domain.ErrChallengeNotFound
	case err != nil:
		return domain.Principal{}, unavailable(err)
	}

	p, err := s.Principals.GetPrincipalByID(ctx, c.PrincipalID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.Principal{}, domain.ErrChallengeNotFound
	case err != nil:
		return domain.Principal{}, unavailable(err)
	}
	if !p.Active {
		return domain.Principal{}, domain.ErrInactivePrincipal
	}
	return p, nil
}

func (s *LoginService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.Passwords.Hash("not-a-real-password")
		if err != nil {
			panic(fmt.Sprintf("hash dummy password: %v", err))
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *LoginService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
