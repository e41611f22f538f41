package config

import (
	"testing"
	"time"

	"github.com/grantway/grantway/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GRANTWAY_POSTGRES_URL", "postgres://localhost/grantway?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.HealthAddr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("GRANTWAY_POSTGRES_URL", "postgres://db:5432/grantway")
	t.Setenv("GRANTWAY_PORT", "9000")
	t.Setenv("GRANTWAY_LOG_LEVEL", "debug")
	t.Setenv("GRANTWAY_METRICS_ENABLED", "false")
	t.Setenv("GRANTWAY_READ_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("missing database URL", func(t *testing.T) {
		t.Setenv("GRANTWAY_POSTGRES_URL", "")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("port collision", func(t *testing.T) {
		t.Setenv("GRANTWAY_POSTGRES_URL", "postgres://db:5432/grantway")
		t.Setenv("GRANTWAY_PORT", "9090")
		t.Setenv("GRANTWAY_HEALTH_PORT", "9090")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
