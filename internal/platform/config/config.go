// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, providers) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// # Store Drivers

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// # Configuration Schema

// Config holds all runtime configuration for the secrets gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// User store selection
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// SQLitePath is the database file used when StoreDriver is "sqlite".
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./data/secrets.db"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Session store (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// SessionSecret keys the OAuth state signer.
	SessionSecret string `env:"SESSION_SECRET,required"`

	// Session lifetime
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionMaxTTL  time.Duration `env:"SESSION_MAX_TTL"  envDefault:"24h"`
	CookieSecure   bool          `env:"COOKIE_SECURE"    envDefault:"true"`

	// Credential hashing cost
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	// Browser destinations after the federated flow
	LoginURL   string `env:"LOGIN_URL"   envDefault:"/login"`
	LandingURL string `env:"LANDING_URL" envDefault:"/secrets"`

	// Identity provider calls
	OAuthHTTPTimeout time.Duration `env:"OAUTH_HTTP_TIMEOUT" envDefault:"10s"`
	OAuthStateTTL    time.Duration `env:"OAUTH_STATE_TTL"    envDefault:"10m"`

	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string   `env:"GOOGLE_REDIRECT_URL"`
	GoogleScopes       []string `env:"GOOGLE_SCOPES" envSeparator:","`

	GitHubClientID     string   `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string   `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string   `env:"GITHUB_REDIRECT_URL"`
	GitHubScopes       []string `env:"GITHUB_SCOPES" envSeparator:","`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// ProviderConfig describes one external identity provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// # Configuration Loading

// Load parses process environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	default:
		problems = append(problems, fmt.Errorf("STORE_DRIVER %q is not supported", c.StoreDriver))
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.SessionIdleTTL <= 0 || c.SessionMaxTTL <= 0 {
		problems = append(problems, errors.New("session lifetimes must be positive"))
	}
	if c.SessionIdleTTL > c.SessionMaxTTL {
		problems = append(problems, errors.New("SESSION_IDLE_TTL must not exceed SESSION_MAX_TTL"))
	}
	if c.OAuthHTTPTimeout <= 0 {
		problems = append(problems, errors.New("OAUTH_HTTP_TIMEOUT must be positive"))
	}
	if c.IsProduction() && !c.CookieSecure {
		problems = append(problems, errors.New("COOKIE_SECURE must be enabled in production"))
	}

	if err := errors.Join(problems...); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the browser origins accepted by CORS outside development.
func (c *Config) AllowedOrigins() []string {
	return trimList(c.ExtraOrigins)
}

// # Identity Providers

// Providers returns the identity providers whose client id, secret and
// redirect URL are all configured, keyed by route name.
func (c *Config) Providers() map[string]ProviderConfig {
	providers := make(map[string]ProviderConfig)

	if c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != "" {
		scopes := trimList(c.GoogleScopes)
		if len(scopes) == 0 {
			scopes = []string{"profile"}
		}
		providers["google"] = ProviderConfig{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  c.GoogleRedirectURL,
			AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:     "https://oauth2.googleapis.com/token",
			UserInfoURL:  "https://www.googleapis.com/oauth2/v3/userinfo",
			Scopes:       scopes,
		}
	}

	if c.GitHubClientID != "" && c.GitHubClientSecret != "" && c.GitHubRedirectURL != "" {
		scopes := trimList(c.GitHubScopes)
		if len(scopes) == 0 {
			scopes = []string{"read:user"}
		}
		providers["github"] = ProviderConfig{
			ClientID:     c.GitHubClientID,
			ClientSecret: c.GitHubClientSecret,
			RedirectURL:  c.GitHubRedirectURL,
			AuthURL:      "https://github.com/login/oauth/authorize",
			TokenURL:     "https://github.com/login/oauth/access_token",
			UserInfoURL:  "https://api.github.com/user",
			Scopes:       scopes,
		}
	}

	return providers
}

// trimList removes blank entries from a comma-split list.
func trimList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			result = append(result, value)
		}
	}
	return result
}
