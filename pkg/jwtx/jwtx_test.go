package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "backoffice-test"

var hmacSecret = []byte("0123456789abcdef0123456789abcdef")

func newEdDSA(t *testing.T, kid string) jwtx.Signer {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	s, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	return s
}

func verifierAt(t *testing.T, now time.Time, signers ...jwtx.Signer) *jwtx.KeyVerifier {
	t.Helper()
	keys := jwtx.NewKeySet()
	for _, s := range signers {
		require.NoError(t, keys.AddSigner(s))
	}
	return jwtx.NewVerifier(keys, jwtx.VerifyOptions{
		Issuer: testIssuer,
		Now:    func() time.Time { return now },
	})
}

func TestSignAndVerify(t *testing.T) {
	hs, err := jwtx.NewSignerHS256("hs-1", hmacSecret)
	require.NoError(t, err)

	for _, signer := range []jwtx.Signer{newEdDSA(t, "ed-1"), hs} {
		t.Run(signer.Alg(), func(t *testing.T) {
			now := time.Unix(1700000000, 0).UTC()
			claims := jwtx.NewSessionClaims("principal-1", "admin", testIssuer, []string{"pwd", "otp"}, 15*time.Minute, now)

			raw, err := signer.Sign(claims)
			require.NoError(t, err)

			got, err := verifierAt(t, now.Add(time.Minute), signer).Verify(raw)
			require.NoError(t, err)
			require.Equal(t, "principal-1", got.Subject)
			require.Equal(t, "admin", got.Role)
			require.Equal(t, []string{"pwd", "otp"}, got.AMR)
			require.Equal(t, now, got.IssuedAt.Time.UTC())
			require.Equal(t, now.Add(15*time.Minute), got.ExpiresAt.Time.UTC())
			require.NotEmpty(t, got.ID)
		})
	}
}

func TestNewSessionClaimsUniqueJTI(t *testing.T) {
	now := time.Now()
	a := jwtx.NewSessionClaims("p", "r", testIssuer, nil, time.Minute, now)
	b := jwtx.NewSessionClaims("p", "r", testIssuer, nil, time.Minute, now)
	require.NotEqual(t, a.ID, b.ID)
}

func TestVerifyFailures(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	signer := newEdDSA(t, "ed-1")
	claims := jwtx.NewSessionClaims("principal-1", "admin", testIssuer, nil, 15*time.Minute, now)
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		_, err := verifierAt(t, now.Add(16*time.Minute), signer).Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		_, err := verifierAt(t, now.Add(-time.Hour), signer).Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrNotYetValid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := jwtx.NewSessionClaims("principal-1", "admin", "someone-else", nil, 15*time.Minute, now)
		token, err := signer.Sign(other)
		require.NoError(t, err)
		_, err = verifierAt(t, now, signer).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, err := verifierAt(t, now, newEdDSA(t, "ed-2")).Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("same kid different key", func(t *testing.T) {
		_, err := verifierAt(t, now, newEdDSA(t, "ed-1")).Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(raw, ".")
		require.Len(t, parts, 3)
		other, err := signer.Sign(jwtx.NewSessionClaims("principal-2", "admin", testIssuer, nil, time.Hour, now))
		require.NoError(t, err)
		forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

		_, err = verifierAt(t, now, signer).Verify(forged)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifierAt(t, now, signer).Verify("not.a.token")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestVerifyRejectsAlgorithmConfusion(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	ed := newEdDSA(t, "shared-kid")

	// HS256 token carrying the kid of an EdDSA key.
	hs, err := jwtx.NewSignerHS256("shared-kid", hmacSecret)
	require.NoError(t, err)
	raw, err := hs.Sign(jwtx.NewSessionClaims("p", "admin", testIssuer, nil, time.Minute, now))
	require.NoError(t, err)

	_, err = verifierAt(t, now, ed).Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
}

func TestSignerValidation(t *testing.T) {
	_, err := jwtx.NewSignerHS256("hs", []byte("short"))
	require.Error(t, err)

	_, err = jwtx.NewSignerEdDSA("ed", []byte("not pem"))
	require.Error(t, err)

	keys := jwtx.NewKeySet()
	require.False(t, keys.IsReady())
	require.Error(t, keys.AddSigner(mustHS(t, "")))
	require.NoError(t, keys.AddSigner(mustHS(t, "kid")))
	require.True(t, keys.IsReady())

	alg, _, err := keys.Get("kid")
	require.NoError(t, err)
	require.Equal(t, "HS256", alg)

	_, _, err = keys.Get("missing")
	require.ErrorIs(t, err, jwtx.ErrNoKey)
}

func mustHS(t *testing.T, kid string) jwtx.Signer {
	t.Helper()
	s, err := jwtx.NewSignerHS256(kid, hmacSecret)
	require.NoError(t, err)
	return s
}
