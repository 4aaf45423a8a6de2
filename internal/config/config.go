package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Auth modes. The bypass can only be enabled through deployment-time
// configuration; no request input can switch modes.
const (
	AuthModeEnforced  = "enforced"
	AuthModeDevBypass = "dev-bypass"
)

// Config holds all configuration for the credo server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
}

type ServerConfig struct {
	Port int    `env:"CREDO_PORT" envDefault:"8080"`
	Env  string `env:"CREDO_ENV" envDefault:"development"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// AuthConfig controls credential resolution. Mode is threaded explicitly
// through construction so the bypass path is auditable and testable.
type AuthConfig struct {
	Mode             string   `env:"CREDO_AUTH_MODE" envDefault:"enforced"`
	InstallerKey     string   `env:"CREDO_INSTALLER_KEY"`
	DirectoryBackend string   `env:"CREDO_DIRECTORY_BACKEND" envDefault:"store"`
	DevTenant        string   `env:"CREDO_DEV_TENANT" envDefault:"default"`
	DevDatabases     []string `env:"CREDO_DEV_DATABASES" envSeparator:","`
	RequestsPerMin   int      `env:"CREDO_RATE_LIMIT_PER_MIN" envDefault:"60"`

	// StaticKeys feeds the static directory backend: raw key to
	// "clientId:db1;db2" entries, e.g.
	// CREDO_STATIC_KEYS="cr_abc=acme:matters;billing,cr_def=globex".
	StaticKeys map[string]string `env:"CREDO_STATIC_KEYS" envSeparator:"," envKeyValSeparator:"="`
}

type GatewayConfig struct {
	BaseURL string        `env:"GATEWAY_BASE_URL"`
	Timeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"30s"`
}

var validDirectoryBackends = map[string]bool{
	"store":  true,
	"static": true,
}

// Load reads configuration from environment variables (and a local .env
// file if present) and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	switch c.Auth.Mode {
	case AuthModeEnforced:
		if c.Auth.InstallerKey == "" {
			return fmt.Errorf("CREDO_INSTALLER_KEY is required when CREDO_AUTH_MODE is enforced")
		}
	case AuthModeDevBypass:
		if c.Server.Env == "production" {
			return fmt.Errorf("CREDO_AUTH_MODE=dev-bypass is not allowed when CREDO_ENV is production")
		}
	default:
		return fmt.Errorf("CREDO_AUTH_MODE must be one of enforced, dev-bypass; got %q", c.Auth.Mode)
	}

	if !validDirectoryBackends[c.Auth.DirectoryBackend] {
		return fmt.Errorf("CREDO_DIRECTORY_BACKEND must be one of store, static; got %q", c.Auth.DirectoryBackend)
	}

	if c.Auth.DirectoryBackend == "static" && len(c.Auth.StaticKeys) == 0 {
		return fmt.Errorf("CREDO_STATIC_KEYS is required when CREDO_DIRECTORY_BACKEND is static")
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("GATEWAY_BASE_URL is required")
	}

	return nil
}

// DevBypass reports whether the deployment synthesizes a tenant context
// when no credential header is presented.
func (c *Config) DevBypass() bool {
	return c.Auth.Mode == AuthModeDevBypass
}
