package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseDriver string        // sqlite or postgres (default: sqlite)
	DatabaseFile   string        // SQLite database file (default: ./acl.db)
	DatabaseURL    string        // Postgres DSN, required when DatabaseDriver is postgres
	LockTimeout    time.Duration // Bounded wait for row locks (default: 5s)

	InviteTTL       time.Duration // Invite expiry horizon (default: 72h)
	InviteRetention time.Duration // How long dead invites are kept (default: 30 days)
	ShadowLegacy    bool          // Compare legacy team access against the ACL (default: false)
	BackfillWorkers int           // Parallel projects during backfill (default: 4)

	Issuer        string        // Expected token issuer (default: bartab-auth)
	Audience      string        // Expected token audience, empty to skip the check
	PublicKeyFile string        // Ed25519 PEM public key verifying access tokens
	KeyID         string        // kid the public key is registered under
	JWKSURL       string        // Issuer JWKS endpoint, used instead of PublicKeyFile when set
	JWKSRefresh   time.Duration // JWKS refresh interval (default: 10m)
	PepperFile    string        // Password pepper for new-account claims (default: ./pepper)

	Env                  string        // dev, staging, prod (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // HTTP port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Dead invite purge interval (default: 1h)
}

var (
	ErrUnknownDriver    = errors.New("ACL_DATABASE_DRIVER must be sqlite or postgres")
	ErrMissingURL       = errors.New("ACL_DATABASE_URL is required for the postgres driver")
	ErrMissingKeyFile   = errors.New("AUTH_PUBLIC_KEY_FILE or AUTH_JWKS_URL is required")
	ErrInvalidWorkers   = errors.New("ACL_BACKFILL_WORKERS must be positive")
	ErrInvalidInviteTTL = errors.New("ACL_INVITE_TTL must be positive")
)

func LoadConfig() Config {
	return Config{
		DatabaseDriver: strings.ToLower(getEnvOrDefault("ACL_DATABASE_DRIVER", "sqlite")),
		DatabaseFile:   getEnvOrDefault("ACL_DATABASE_FILE", "acl.db"),
		DatabaseURL:    os.Getenv("ACL_DATABASE_URL"),
		LockTimeout:    getEnvDurationOrDefault("ACL_LOCK_TIMEOUT", 5*time.Second),

		InviteTTL:       getEnvDurationOrDefault("ACL_INVITE_TTL", 72*time.Hour),
		InviteRetention: getEnvDurationOrDefault("ACL_INVITE_RETENTION", 30*24*time.Hour),
		ShadowLegacy:    getEnvBoolOrDefault("ACL_SHADOW_LEGACY", false),
		BackfillWorkers: getEnvIntOrDefault("ACL_BACKFILL_WORKERS", 4),

		Issuer:        getEnvOrDefault("AUTH_ISSUER", "bartab-auth"),
		Audience:      os.Getenv("AUTH_AUDIENCE"),
		PublicKeyFile: os.Getenv("AUTH_PUBLIC_KEY_FILE"),
		KeyID:         getEnvOrDefault("AUTH_KEY_ID", "default"),
		JWKSURL:       os.Getenv("AUTH_JWKS_URL"),
		JWKSRefresh:   getEnvDurationOrDefault("AUTH_JWKS_REFRESH", 10*time.Minute),
		PepperFile:    getEnvOrDefault("ACL_PEPPER_FILE", "pepper"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// ValidateStore checks the settings every entry point needs.
func (c Config) ValidateStore() error {
	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return ErrMissingURL
		}
	default:
		return ErrUnknownDriver
	}
	if c.BackfillWorkers <= 0 {
		return ErrInvalidWorkers
	}
	return nil
}

// Validate checks the settings the HTTP service needs on top of the store.
func (c Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.PublicKeyFile == "" && c.JWKSURL == "" {
		return ErrMissingKeyFile
	}
	if c.InviteTTL <= 0 {
		return ErrInvalidInviteTTL
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes, for older deployments.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
