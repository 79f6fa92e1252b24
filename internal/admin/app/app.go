package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/backoffice/internal/admin/http"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/internal/admin/store/drivers/postgres"
	redisstore "github.com/aussiebroadwan/backoffice/internal/admin/store/drivers/redis"
	"github.com/aussiebroadwan/backoffice/internal/admin/store/drivers/sqlite"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

// BuildVersion is set at build time with -ldflags "-X ...app.BuildVersion=".
var BuildVersion = "v0.1.0"

// Application wires the admin service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	credentials store.Credentials
	redis       *redis.Client // nil unless CREDENTIAL_BACKEND=redis
	keys        *jwtx.KeySet
	signer      jwtx.Signer
	sealer      *cryptox.Sealer
	passwords   cryptox.PasswordHasher

	// Services
	sessionService      *service.SessionService
	gate                *service.Gate
	loginService        *service.LoginService
	accountService      *service.AccountService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialized. A missing
// signing or master key outside dev is an error here, not at first use.
func New(cfg Config) (_ *Application, err error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "backoffice-admin",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	ctx := slogx.WithContext(context.Background(), app.logger)

	defer func() {
		if err != nil {
			app.closeStores()
		}
	}()

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.passwords = cryptox.PasswordHasher{Pepper: pepper}

	if app.sealer, err = InitSealer(cfg, app.logger); err != nil {
		return nil, err
	}
	if app.signer, app.keys, err = InitSessionKeys(cfg, app.logger); err != nil {
		return nil, err
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initCredentials(ctx); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		return nil, err
	}

	created, err := app.bootstrapService.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		app.logger.Warn("bootstrap admin created, unset BOOTSTRAP_ADMIN_PASSWORD")
	}

	app.initHTTP()

	return app, nil
}

// Handler is the HTTP entry point, exposed for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("admin service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gives in-flight requests SHUTDOWN_GRACE_PERIOD, then stops the
// worker and closes the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down admin service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("admin service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the principal store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initCredentials picks where MFA credentials live. Principals and login
// challenges always stay in the database.
func (app *Application) initCredentials(ctx context.Context) error {
	if app.cfg.CredentialBackend != "redis" {
		app.credentials = app.db.Credentials()
		return nil
	}

	client, err := redisstore.Connect(ctx, app.cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = client
	app.credentials = redisstore.NewCredentialStore(client, app.cfg.RedisKeyPrefix)

	app.logger.Info("mfa credentials stored in redis", "prefix", app.cfg.RedisKeyPrefix)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	verifier := jwtx.NewVerifier(app.keys, jwtx.VerifyOptions{Issuer: app.cfg.Issuer})
	sessions, err := service.NewSessionService(
		service.SessionConfig{Issuer: app.cfg.Issuer, TTL: app.cfg.SessionTTL},
		app.signer, verifier, nil,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}
	app.sessionService = sessions

	app.gate = &service.Gate{
		Sessions:   sessions,
		Principals: app.db.Principals(),
	}

	provisioner := &service.ProvisionService{
		Credentials: app.credentials,
		Sealer:      app.sealer,
		Issuer:      app.cfg.MFAIssuer,
	}
	mfaVerifier := &service.VerifierService{
		Credentials: app.credentials,
		Sealer:      app.sealer,
	}

	app.loginService = &service.LoginService{
		Principals:   app.db.Principals(),
		Credentials:  app.credentials,
		Challenges:   app.db.Challenges(),
		Passwords:    app.passwords,
		Provisioner:  provisioner,
		Verifier:     mfaVerifier,
		Sessions:     sessions,
		ChallengeTTL: app.cfg.ChallengeTTL,
	}
	app.accountService = &service.AccountService{Store: app.db}
	if app.redis != nil {
		app.accountService.Credentials = app.credentials
	}
	app.bootstrapService = &service.BootstrapService{
		Store:     app.db,
		Passwords: app.passwords,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db.Challenges(),
		app.credentials,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.PendingEnrollmentTTL,
	)

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		BuildVersion,
		app.db,
		app.credentials,
		app.logger,
	)

	router.Limits = httpapi.RateLimits{
		Strict:   app.cfg.RateLimitStrict,
		Moderate: app.cfg.RateLimitModerate,
		Lenient:  app.cfg.RateLimitLenient,
	}
	router.Gate = app.gate
	router.LoginService = app.loginService
	router.AccountService = app.accountService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
