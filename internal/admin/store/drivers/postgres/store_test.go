package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway postgres container and returns a migrated
// store. The test is skipped with -short or when no docker daemon is reachable.
func setupPostgres(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "backoffice",
			"POSTGRES_PASSWORD": "backoffice",
			"POSTGRES_DB":       "backoffice",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://backoffice:backoffice@%s:%s/backoffice?sslmode=disable", host, port.Port())
	s, err := NewStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations(ctx))
	return s
}

func TestPostgresStore(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Principals().CreatePrincipal(ctx, domain.Principal{
		ID:           "p1",
		Username:     "alice",
		PasswordHash: "argon2:dummy",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	t.Run("principals", func(t *testing.T) {
		got, err := s.Principals().GetPrincipalByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "p1", got.ID)
		require.True(t, got.CreatedAt.Equal(now))

		err = s.Principals().CreatePrincipal(ctx, domain.Principal{
			ID: "p2", Username: "alice", PasswordHash: "x", Role: domain.RoleSupport,
			CreatedAt: now, UpdatedAt: now,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		empty, err := s.Principals().IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})

	t.Run("credential lifecycle", func(t *testing.T) {
		cred := domain.MFACredential{
			PrincipalID:  "p1",
			SealedSecret: []byte("sealed-1"),
			CreatedAt:    now,
			BackupCodes:  []string{"h1", "h2"},
		}
		require.NoError(t, s.Credentials().ReplacePendingCredential(ctx, cred))

		cred.SealedSecret = []byte("sealed-2")
		cred.BackupCodes = []string{"h3"}
		require.NoError(t, s.Credentials().ReplacePendingCredential(ctx, cred))

		n, err := s.Credentials().CountBackupCodes(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, 1, n)

		ok, err := s.Credentials().EnableCredential(ctx, "p1", now.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		require.ErrorIs(t, s.Credentials().ReplacePendingCredential(ctx, cred), store.ErrConflict)

		got, err := s.Credentials().GetCredential(ctx, "p1")
		require.NoError(t, err)
		require.True(t, got.Enabled)
		require.Equal(t, []byte("sealed-2"), got.SealedSecret)
	})

	t.Run("concurrent consume has one winner", func(t *testing.T) {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Credentials().TryConsumeBackupCode(ctx, "p1", "h3")
				if err != nil {
					t.Error(err)
					return
				}
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})

	t.Run("challenges expire", func(t *testing.T) {
		c := domain.LoginChallenge{
			ID: "c1", PrincipalID: "p1", TokenHash: "th",
			CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute),
		}
		require.NoError(t, s.Challenges().CreateChallenge(ctx, c))

		_, err := s.Challenges().GetChallengeByTokenHash(ctx, "th", now)
		require.NoError(t, err)

		n, err := s.Challenges().DeleteExpiredChallenges(ctx, c.ExpiresAt)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})

	t.Run("interleaved check-then-insert has one winner", func(t *testing.T) {
		var (
			reads   = make(chan struct{}, 2)
			proceed = make(chan struct{})
			errs    = make(chan error, 2)
		)
		insertAfterMiss := func(missing, username string) error {
			return s.WithTx(ctx, func(tx store.Tx) error {
				_, err := tx.Principals().GetPrincipalByUsername(ctx, missing)
				reads <- struct{}{}
				if !errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("lookup %s: %w", missing, err)
				}
				<-proceed
				return tx.Principals().CreatePrincipal(ctx, domain.Principal{
					ID: "p-" + username, Username: username, PasswordHash: "x",
					Role: domain.RoleAdmin, Active: true, CreatedAt: now, UpdatedAt: now,
				})
			})
		}

		go func() { errs <- insertAfterMiss("bob", "carol") }()
		go func() { errs <- insertAfterMiss("carol", "bob") }()
		<-reads
		<-reads
		close(proceed)

		first, second := <-errs, <-errs
		if first != nil {
			first, second = second, first
		}
		require.NoError(t, first)
		require.ErrorIs(t, second, store.ErrConflict)
	})
}
