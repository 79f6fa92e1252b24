package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
)

// Authentication method references carried in the amr claim.
const (
	AMRPassword = "pwd"
	AMRTOTP     = "otp"
	AMRBackup   = "rec"
)

var ErrNoSigner = errors.New("session: no signing key configured")

// SessionConfig is built once at startup.
type SessionConfig struct {
	Issuer string
	TTL    time.Duration
}

// SessionService mints, validates and renews session tokens.
type SessionService struct {
	cfg      SessionConfig
	signer   jwtx.Signer
	verifier jwtx.Verifier
	now      func() time.Time
}

// NewSessionService fails when signer is missing or unusable, which callers
// treat as a startup error. now may be nil; verifier must use the same clock.
func NewSessionService(cfg SessionConfig, signer jwtx.Signer, verifier jwtx.Verifier, now func() time.Time) (*SessionService, error) {
	if signer == nil || verifier == nil {
		return nil, ErrNoSigner
	}
	if err := signer.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSigner, err)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = jwtx.DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{cfg: cfg, signer: signer, verifier: verifier, now: now}, nil
}

// TTL is the sliding lifetime of every token.
func (s *SessionService) TTL() time.Duration { return s.cfg.TTL }

// ValidatedSession is a token that passed signature, issuer and expiry
// checks. Only Validate produces one, which is what makes Renew safe.
type ValidatedSession struct {
	subjectID string
	role      string
	amr       []string
	expiresAt time.Time
}

func (v ValidatedSession) SubjectID() string    { return v.subjectID }
func (v ValidatedSession) Role() string         { return v.role }
func (v ValidatedSession) AMR() []string        { return slices.Clone(v.amr) }
func (v ValidatedSession) ExpiresAt() time.Time { return v.expiresAt }

// Issue mints a token for p. amr lists how the principal authenticated.
func (s *SessionService) Issue(p domain.Principal, amr ...string) (domain.SessionToken, error) {
	return s.mint(p.ID, p.Role, amr)
}

// Validate verifies raw. Every failure is reported as
// domain.ErrInvalidSession; the jwtx cause stays wrapped for logs.
func (s *SessionService) Validate(raw string) (ValidatedSession, error) {
	claims, err := s.verifier.Verify(raw)
	if err != nil {
		return ValidatedSession{}, fmt.Errorf("%w: %w", domain.ErrInvalidSession, err)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return ValidatedSession{}, domain.ErrInvalidSession
	}

	return ValidatedSession{
		subjectID: claims.Subject,
		role:      claims.Role,
		amr:       claims.AMR,
		expiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Renew issues a fresh token for the same subject and role. The old token
// stays valid until its own expiry.
func (s *SessionService) Renew(v ValidatedSession) (domain.SessionToken, error) {
	if v.subjectID == "" {
		return domain.SessionToken{}, domain.ErrInvalidSession
	}
	return s.mint(v.subjectID, v.role, v.amr)
}

func (s *SessionService) mint(subject, role string, amr []string) (domain.SessionToken, error) {
	// JWT dates have second precision.
	now := s.now().UTC().Truncate(time.Second)

	claims := jwtx.NewSessionClaims(subject, role, s.cfg.Issuer, amr, s.cfg.TTL, now)
	raw, err := s.signer.Sign(claims)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	return domain.SessionToken{
		Raw:       raw,
		SubjectID: subject,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}, nil
}
