package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpSecretSize is 160 bits, the RFC 4226 recommendation for SHA-1.
const totpSecretSize = 20

// ProvisionService creates pending MFA credentials.
type ProvisionService struct {
	Credentials store.Credentials
	Sealer      *cryptox.Sealer
	Issuer      string // shown by authenticator apps, e.g. "Backoffice"
	Now         func() time.Time
}

// Provision generates a new secret and backup codes for principalID and
// stores them as a pending credential, replacing any earlier pending one.
// label is the account name shown in the authenticator app. The returned
// bundle is the only time the secret and codes leave the server in clear.
func (s *ProvisionService) Provision(ctx context.Context, principalID, label string) (domain.ProvisioningBundle, error) {
	l := slogx.FromContext(ctx)

	existing, err := s.Credentials.GetCredential(ctx, principalID)
	switch {
	case err == nil && existing.Enabled:
		return domain.ProvisioningBundle{}, domain.ErrMFAAlreadyEnabled
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return domain.ProvisioningBundle{}, unavailable(err)
	}

	secret := make([]byte, totpSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return domain.ProvisioningBundle{}, fmt.Errorf("generate totp secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: label,
		Period:      totpPeriod,
		Secret:      secret,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.ProvisioningBundle{}, fmt.Errorf("build enrollment uri: %w", err)
	}

	codes, err := generateBackupCodes(backupCodeCount)
	if err != nil {
		return domain.ProvisioningBundle{}, fmt.Errorf("generate backup codes: %w", err)
	}
	hashes := make([]string, len(codes))
	for i, code := range codes {
		canonical, _ := canonicalBackupCode(code)
		hashes[i] = backupCodeFingerprint(canonical)
	}

	sealed, err := s.Sealer.Seal(secret, []byte(principalID))
	if err != nil {
		return domain.ProvisioningBundle{}, fmt.Errorf("seal totp secret: %w", err)
	}

	err = s.Credentials.ReplacePendingCredential(ctx, domain.MFACredential{
		PrincipalID:  principalID,
		SealedSecret: sealed,
		BackupCodes:  hashes,
		CreatedAt:    s.now(),
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		// Confirmed by a concurrent request between the read and the write.
		return domain.ProvisioningBundle{}, domain.ErrMFAAlreadyEnabled
	case err != nil:
		return domain.ProvisioningBundle{}, unavailable(err)
	}

	l.Info("mfa credential provisioned", "principal_id", principalID)

	return domain.ProvisioningBundle{
		Secret:        key.Secret(),
		EnrollmentURI: key.URL(),
		BackupCodes:   codes,
	}, nil
}

func (s *ProvisionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// unavailable tags a collaborator failure so callers can tell it apart from
// a rejected code.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
