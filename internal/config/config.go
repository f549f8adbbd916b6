// Package config provides application configuration.
package config

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration. A single instance is built at
// startup and handed to every component constructor; nothing reads the
// environment after Load returns.
type Config struct {
	// Server settings
	Port string
	Host string

	// Database settings
	DBPath string

	// JWT settings
	JWTSecret string
	JWTExpiry time.Duration

	// Token vault settings
	EncryptionSecret string // Used for encrypting provider access tokens

	// Aggregation provider settings
	ProviderBaseURL  string
	ProviderClientID string
	ProviderSecret   string

	// Environment
	IsDevelopment bool
	DemoMode      bool // Seed a demo user with sample data at startup
}

var (
	// ErrMissingEncryptionSecret is returned when no vault secret is configured.
	ErrMissingEncryptionSecret = errors.New("ENCRYPTION_SECRET must be set (at least 32 characters)")

	// ErrMissingProviderCredentials is returned when provider credentials are absent.
	ErrMissingProviderCredentials = errors.New("PROVIDER_CLIENT_ID and PROVIDER_SECRET must be set")
)

// Load builds a Config from the environment (and an optional .env file).
// It returns an error when a required secret is absent: a missing vault key or
// missing provider credentials are configuration errors, not runtime errors.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	// Missing .env file is fine; environment variables still apply.
	v.ReadInConfig()

	v.SetDefault("PORT", "8080")
	v.SetDefault("HOST", "localhost")
	v.SetDefault("DB_PATH", filepath.Join("data", "pocketledger.db"))
	v.SetDefault("JWT_SECRET", "change-me-in-production-please")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("PROVIDER_BASE_URL", "https://sandbox.plaid.com")
	v.SetDefault("ENV", "development")
	v.SetDefault("DEMO_MODE", false)

	cfg := &Config{
		Port:             v.GetString("PORT"),
		Host:             v.GetString("HOST"),
		DBPath:           v.GetString("DB_PATH"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTExpiry:        time.Duration(v.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		EncryptionSecret: v.GetString("ENCRYPTION_SECRET"),
		ProviderBaseURL:  v.GetString("PROVIDER_BASE_URL"),
		ProviderClientID: v.GetString("PROVIDER_CLIENT_ID"),
		ProviderSecret:   v.GetString("PROVIDER_SECRET"),
		IsDevelopment:    v.GetString("ENV") == "development",
		DemoMode:         v.GetBool("DEMO_MODE"),
	}

	if len(cfg.EncryptionSecret) < 32 {
		return nil, ErrMissingEncryptionSecret
	}
	if cfg.ProviderClientID == "" || cfg.ProviderSecret == "" {
		return nil, ErrMissingProviderCredentials
	}

	return cfg, nil
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}
