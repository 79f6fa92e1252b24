package service

import (
	"crypto/subtle"
	"encoding/base32"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	totpPeriod = 30 // seconds per step
	totpDigits = 6
	totpSkew   = 3 // steps accepted either side of the current one

	// maxCodeInput bounds what we are willing to scan for digits.
	maxCodeInput = 32
)

var b32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPEngine computes RFC 6238 codes (HMAC-SHA1, 6 digits, 30s steps). It
// holds no state and never reads the clock.
type TOTPEngine struct{}

// Step returns the time-step index for t.
func (TOTPEngine) Step(t time.Time) int64 {
	return t.Unix() / totpPeriod
}

// Generate returns the zero-padded code for secret at step. secret must be
// non-empty; provisioning guarantees that.
func (TOTPEngine) Generate(secret []byte, step int64) string {
	code, err := hotp.GenerateCodeCustom(b32NoPadding.EncodeToString(secret), uint64(step), hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// Only reachable with an empty secret.
		return ""
	}
	return code
}

// Match reports whether code equals the code of any step within ±totpSkew of
// step. code must already be normalized. Every candidate is compared so the
// time spent does not depend on which step matched.
func (e TOTPEngine) Match(secret []byte, code string, step int64) bool {
	matched := 0
	for offset := int64(-totpSkew); offset <= totpSkew; offset++ {
		candidate := e.Generate(secret, step+offset)
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}
	return matched == 1
}

// normalizeTOTPCode drops every non-digit and accepts exactly six ASCII
// digits, so "123 456" and "123-456" are fine.
func normalizeTOTPCode(raw string) (string, bool) {
	if len(raw) > maxCodeInput {
		return "", false
	}

	digits := make([]byte, 0, totpDigits)
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) != totpDigits {
		return "", false
	}
	return string(digits), true
}
