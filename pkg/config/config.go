// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/loamlabs/ssobridge/pkg/observability"
	"github.com/loamlabs/ssobridge/pkg/storage/postgres"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      postgres.ConnectionConfig
	Observability ObservabilityConfig
	SSO           SSOConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel observability.LogLevel
}

// SSOConfig holds flow-engine settings.
type SSOConfig struct {
	// AdminToken guards provider registration when set.
	AdminToken string

	// SessionTTL is the lifetime of issued sessions.
	SessionTTL time.Duration

	// CleanupSchedule is a cron expression for the expired-session sweep.
	CleanupSchedule string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SSOBRIDGE_HOST", "0.0.0.0"),
			Port:            getEnv("SSOBRIDGE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("SSOBRIDGE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SSOBRIDGE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SSOBRIDGE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SSOBRIDGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: postgres.ConnectionConfig{
			URL:         getEnv("SSOBRIDGE_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("SSOBRIDGE_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("SSOBRIDGE_POSTGRES_MIN_CONNS", 5),
			Timeout:     getEnvDuration("SSOBRIDGE_POSTGRES_TIMEOUT", 10*time.Second),
			MaxLifetime: getEnvDuration("SSOBRIDGE_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel: observability.ParseLogLevel(getEnv("SSOBRIDGE_LOG_LEVEL", "info")),
		},
		SSO: SSOConfig{
			AdminToken:      getEnv("SSOBRIDGE_ADMIN_TOKEN", ""),
			SessionTTL:      getEnvDuration("SSOBRIDGE_SESSION_TTL", 24*time.Hour),
			CleanupSchedule: getEnv("SSOBRIDGE_CLEANUP_SCHEDULE", "@every 1h"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks for required settings and sane values.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("SSOBRIDGE_POSTGRES_URL is required")
	}
	if c.SSO.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
