package service

import (
	"strings"

	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
)

const (
	backupCodeCount  = 8
	backupCodeLength = 10

	// No 0/O, 1/I to keep codes readable when typed from paper.
	backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// generateBackupCodes returns n distinct codes in display form (XXXXX-XXXXX).
func generateBackupCodes(n int) ([]string, error) {
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for len(codes) < n {
		code, err := cryptox.RandomString(backupCodeAlphabet, backupCodeLength)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code[:backupCodeLength/2]+"-"+code[backupCodeLength/2:])
	}
	return codes, nil
}

// canonicalBackupCode uppercases raw and strips dashes and spaces. The
// second result is false when what remains is not a well-formed code.
func canonicalBackupCode(raw string) (string, bool) {
	if len(raw) > maxCodeInput {
		return "", false
	}

	code := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(raw))
	if len(code) != backupCodeLength {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(backupCodeAlphabet, code[i]) < 0 {
			return "", false
		}
	}
	return code, true
}

// backupCodeFingerprint is what the credential store keeps for a code.
func backupCodeFingerprint(canonical string) string {
	return cryptox.FingerprintToken(canonical)
}
