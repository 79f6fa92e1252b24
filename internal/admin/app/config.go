package app

import (
	"errors"
	"fmt"
	"time"

	redisstore "github.com/aussiebroadwan/backoffice/internal/admin/store/drivers/redis"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically
)

// Config is read from the environment once at startup. MasterKey and
// HMACSecret are secrets; never log the struct.
type Config struct {
	Env                 string        `env:"ENV"                   envDefault:"dev"` // dev, staging, prod
	LogLevel            string        `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT"            envDefault:"json"`
	Port                int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	// Issuer is the session token "iss" claim; MFAIssuer is the name
	// authenticator apps show next to the account.
	Issuer    string `env:"ADMIN_ISSUER" envDefault:"backoffice"`
	MFAIssuer string `env:"MFA_ISSUER"   envDefault:"Backoffice"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"` // sqlite, postgres
	DatabaseFile   string `env:"DATABASE_FILE"   envDefault:"backoffice.db"`
	DatabaseURL    string `env:"DATABASE_URL"`

	CredentialBackend string `env:"CREDENTIAL_BACKEND" envDefault:"sql"` // sql, redis
	RedisKeyPrefix    string `env:"REDIS_KEY_PREFIX"   envDefault:"backoffice:mfa"`
	Redis             redisstore.Config

	SessionTTL     time.Duration `env:"SESSION_TTL"              envDefault:"15m"`
	SigningAlg     string        `env:"SESSION_SIGNING_ALG"      envDefault:"EdDSA"` // EdDSA, HS256
	SigningKeyFile string        `env:"SESSION_SIGNING_KEY_FILE"`
	HMACSecret     string        `env:"SESSION_HMAC_SECRET"`

	MasterKey     string `env:"MFA_MASTER_KEY"`
	MasterKeyFile string `env:"MFA_MASTER_KEY_FILE"`
	PepperFile    string `env:"PEPPER_FILE" envDefault:"pepper"`

	ChallengeTTL         time.Duration `env:"CHALLENGE_TTL"          envDefault:"5m"`
	PendingEnrollmentTTL time.Duration `env:"PENDING_ENROLLMENT_TTL" envDefault:"24h"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL"  envDefault:"1h"`

	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`

	// Per route class, e.g. RATE_LIMIT_STRICT_REQUESTS=5,
	// RATE_LIMIT_STRICT_WINDOW=1m, RATE_LIMIT_STRICT_BURST=5. Unset
	// variables keep the httpx defaults.
	RateLimitStrict   httpx.RateLimitConfig `envPrefix:"RATE_LIMIT_STRICT_"`
	RateLimitModerate httpx.RateLimitConfig `envPrefix:"RATE_LIMIT_MODERATE_"`
	RateLimitLenient  httpx.RateLimitConfig `envPrefix:"RATE_LIMIT_LENIENT_"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig parses the environment, after .env has been loaded, and
// validates the result.
func LoadConfig() (Config, error) {
	cfg := Config{
		RateLimitStrict:   httpx.StrictLimit,
		RateLimitModerate: httpx.ModerateLimit,
		RateLimitLenient:  httpx.LenientLimit,
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev enables the ephemeral key fallbacks.
func (c Config) IsDev() bool { return c.Env == "dev" }

func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			invalid("DATABASE_URL is required with DATABASE_DRIVER=postgres")
		}
	default:
		invalid("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.CredentialBackend {
	case "sql", "redis":
	default:
		invalid("unknown CREDENTIAL_BACKEND %q", c.CredentialBackend)
	}

	switch c.SigningAlg {
	case "EdDSA", "HS256":
	default:
		invalid("unknown SESSION_SIGNING_ALG %q", c.SigningAlg)
	}

	if c.SessionTTL <= 0 {
		invalid("SESSION_TTL must be positive")
	}
	if c.ChallengeTTL <= 0 {
		invalid("CHALLENGE_TTL must be positive")
	}
	for name, rl := range map[string]httpx.RateLimitConfig{
		"STRICT":   c.RateLimitStrict,
		"MODERATE": c.RateLimitModerate,
		"LENIENT":  c.RateLimitLenient,
	} {
		if !rl.Valid() {
			invalid("RATE_LIMIT_%s_* must all be positive", name)
		}
	}
	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		invalid("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	return errors.Join(errs...)
}
