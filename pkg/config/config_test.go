package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamlabs/ssobridge/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SSOBRIDGE_POSTGRES_URL", "postgres://localhost/sso_test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.SSO.SessionTTL)
	assert.Equal(t, "@every 1h", cfg.SSO.CleanupSchedule)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SSOBRIDGE_POSTGRES_URL", "postgres://localhost/sso_test")
	t.Setenv("SSOBRIDGE_PORT", "9090")
	t.Setenv("SSOBRIDGE_LOG_LEVEL", "debug")
	t.Setenv("SSOBRIDGE_SESSION_TTL", "1h")
	t.Setenv("SSOBRIDGE_ADMIN_TOKEN", "super-secret")
	t.Setenv("SSOBRIDGE_POSTGRES_MAX_CONNS", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, time.Hour, cfg.SSO.SessionTTL)
	assert.Equal(t, "super-secret", cfg.SSO.AdminToken)
	assert.Equal(t, 50, cfg.Database.MaxConns)
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	t.Setenv("SSOBRIDGE_POSTGRES_URL", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	t.Setenv("SSOBRIDGE_POSTGRES_URL", "postgres://localhost/sso_test")
	t.Setenv("SSOBRIDGE_PORT", "not-a-port")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_MalformedDurationFallsBack(t *testing.T) {
	t.Setenv("SSOBRIDGE_POSTGRES_URL", "postgres://localhost/sso_test")
	t.Setenv("SSOBRIDGE_SESSION_TTL", "eventually")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.SSO.SessionTTL)
}
