package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
)

var ErrNoSigningKey = errors.New("no session signing key configured")

// InitSessionKeys builds the session signer and a key set holding it.
//
// EdDSA reads a PKCS8 PEM key from SESSION_SIGNING_KEY_FILE. In dev a
// missing file falls back to a key generated at startup, so sessions do not
// survive a restart. HS256 always needs SESSION_HMAC_SECRET. Anything else
// missing aborts startup.
func InitSessionKeys(cfg Config, logger *slog.Logger) (jwtx.Signer, *jwtx.KeySet, error) {
	var (
		signer jwtx.Signer
		err    error
	)

	switch cfg.SigningAlg {
	case "HS256":
		if cfg.HMACSecret == "" {
			return nil, nil, fmt.Errorf("%w: SESSION_HMAC_SECRET is empty", ErrNoSigningKey)
		}
		signer, err = jwtx.NewSignerHS256(keyID("hs256", []byte(cfg.HMACSecret)), []byte(cfg.HMACSecret))

	default:
		var pemKey []byte
		switch {
		case cfg.SigningKeyFile != "":
			pemKey, err = os.ReadFile(cfg.SigningKeyFile) // #nosec G304 - operator supplied path
			if err != nil {
				return nil, nil, fmt.Errorf("read session signing key: %w", err)
			}
		case cfg.IsDev():
			pemKey, err = cryptox.GenerateEd25519Key()
			if err != nil {
				return nil, nil, err
			}
			logger.Warn("using an ephemeral session signing key, sessions end on restart")
		default:
			return nil, nil, fmt.Errorf("%w: SESSION_SIGNING_KEY_FILE is empty", ErrNoSigningKey)
		}
		signer, err = jwtx.NewSignerEdDSA(keyID("ed25519", pemKey), pemKey)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("init session signer: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, fmt.Errorf("init session signer: %w", err)
	}

	logger.Info("session signer ready", "alg", signer.Alg(), "kid", signer.KID())
	return signer, keys, nil
}

// InitSealer loads the master key that seals TOTP secrets. In dev a missing
// key falls back to a random one, which orphans every stored secret on
// restart.
func InitSealer(cfg Config, logger *slog.Logger) (*cryptox.Sealer, error) {
	sealer, err := cryptox.LoadSealer(cfg.MasterKeyFile, cfg.MasterKey)
	switch {
	case err == nil:
		return sealer, nil
	case errors.Is(err, cryptox.ErrNoMasterKey) && cfg.IsDev():
		logger.Warn("using an ephemeral MFA master key, enrolled secrets become unreadable on restart")
		return cryptox.NewEphemeralSealer()
	default:
		return nil, fmt.Errorf("init mfa master key: %w", err)
	}
}

// keyID derives a stable kid from the key material without exposing it.
func keyID(prefix string, material []byte) string {
	return prefix + "-" + cryptox.FingerprintToken(string(material))[:12]
}
