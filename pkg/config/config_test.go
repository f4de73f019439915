package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ssogate/pkg/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SSOGATE_POSTGRES_URL", "postgres://localhost/ssogate")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "redis://localhost:6379", cfg.Session.RedisURL)
	assert.Equal(t, 25, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Enforcement.RootCacheTTL)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SSOGATE_POSTGRES_URL", "postgres://db/ssogate")
	t.Setenv("SSOGATE_PORT", "8888")
	t.Setenv("SSOGATE_LOG_LEVEL", "debug")
	t.Setenv("SSOGATE_TOGGLES_PATH", "/etc/ssogate/toggles.yaml")
	t.Setenv("SSOGATE_SESSION_RETENTION", "48h")
	t.Setenv("SSOGATE_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, "/etc/ssogate/toggles.yaml", cfg.Enforcement.TogglesPath)
	assert.Equal(t, 48*time.Hour, cfg.Session.Retention)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfigRequiresPostgresURL(t *testing.T) {
	t.Setenv("SSOGATE_POSTGRES_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres URL is required")
}

func TestValidateRejectsSharedPorts(t *testing.T) {
	t.Setenv("SSOGATE_POSTGRES_URL", "postgres://localhost/ssogate")
	t.Setenv("SSOGATE_PORT", "8080")
	t.Setenv("SSOGATE_HEALTH_PORT", "8080")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("ERROR"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("bogus"))
}
