package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store/drivers/sqlite"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// vectorInstant is unix 1700000000, 20s into step 56666666.
var vectorInstant = time.Unix(1700000000, 0).UTC()

// vectorSecret is base32 JBSWY3DPEHPK3PXP.
var vectorSecret = []byte{0x48, 0x65, 0x6c, 0x6c, 0x6f, 0x21, 0xde, 0xad, 0xbe, 0xef}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	store    *sqlite.Store
	clock    *testClock
	sealer   *cryptox.Sealer
	hasher   cryptox.PasswordHasher
	prov     *ProvisionService
	verifier *VerifierService
	sessions *SessionService
	gate     *Gate
	login    *LoginService
	accounts *AccountService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations(context.Background()))

	clock := newTestClock(vectorInstant)

	sealer, err := cryptox.NewSealer([]byte("test-master-key"))
	require.NoError(t, err)

	sessions := newTestSessions(t, clock, 15*time.Minute)
	hasher := cryptox.PasswordHasher{Pepper: "test-pepper"}

	h := &harness{
		store:  st,
		clock:  clock,
		sealer: sealer,
		hasher: hasher,
		prov: &ProvisionService{
			Credentials: st.Credentials(),
			Sealer:      sealer,
			Issuer:      "Backoffice",
			Now:         clock.Now,
		},
		verifier: &VerifierService{
			Credentials: st.Credentials(),
			Sealer:      sealer,
			Now:         clock.Now,
		},
		sessions: sessions,
		gate:     &Gate{Sessions: sessions, Principals: st.Principals()},
		accounts: &AccountService{Store: st, Now: clock.Now},
	}
	h.login = &LoginService{
		Principals:  st.Principals(),
		Credentials: st.Credentials(),
		Challenges:  st.Challenges(),
		Passwords:   hasher,
		Provisioner: h.prov,
		Verifier:    h.verifier,
		Sessions:    sessions,
		Now:         clock.Now,
	}
	return h
}

func newTestSessions(t *testing.T, clock *testClock, ttl time.Duration) *SessionService {
	t.Helper()

	signer, err := jwtx.NewSignerHS256("test-key", []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifier(keys, jwtx.VerifyOptions{Issuer: "backoffice-test", Now: clock.Now})

	sessions, err := NewSessionService(SessionConfig{Issuer: "backoffice-test", TTL: ttl}, signer, verifier, clock.Now)
	require.NoError(t, err)
	return sessions
}

func (h *harness) addPrincipal(t *testing.T, id, username, password string, active bool) domain.Principal {
	t.Helper()

	hash, err := h.hasher.Hash(password)
	require.NoError(t, err)
	p := domain.Principal{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleSupport,
		Active:       active,
		CreatedAt:    h.clock.Now(),
		UpdatedAt:    h.clock.Now(),
	}
	require.NoError(t, h.store.Principals().CreatePrincipal(context.Background(), p))
	return p
}

// enrollKnownSecret stores an enabled credential with secret and the given
// plain backup codes.
func (h *harness) enrollKnownSecret(t *testing.T, principalID string, secret []byte, codes ...string) {
	t.Helper()
	ctx := context.Background()

	sealed, err := h.sealer.Seal(secret, []byte(principalID))
	require.NoError(t, err)

	hashes := make([]string, len(codes))
	for i, c := range codes {
		canonical, ok := canonicalBackupCode(c)
		require.True(t, ok, "bad test code %q", c)
		hashes[i] = backupCodeFingerprint(canonical)
	}

	require.NoError(t, h.store.Credentials().ReplacePendingCredential(ctx, domain.MFACredential{
		PrincipalID:  principalID,
		SealedSecret: sealed,
		BackupCodes:  hashes,
		CreatedAt:    h.clock.Now(),
	}))
	ok, err := h.store.Credentials().EnableCredential(ctx, principalID, h.clock.Now())
	require.NoError(t, err)
	require.True(t, ok)
}
