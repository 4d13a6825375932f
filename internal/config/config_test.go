package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlinlabs/merlin-api/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "merlin.db", cfg.DatabasePath)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.NotEmpty(t, cfg.EncryptionSecret)
	assert.NotEmpty(t, cfg.AggregatorBaseURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("ENCRYPTION_SECRET", "configured-secret")
	t.Setenv("SWEEP_SECRET", "cron-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, "configured-secret", cfg.EncryptionSecret)
	assert.Equal(t, "cron-secret", cfg.SweepSecret)
}

func TestLoadProductionRequiresEncryptionSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ENCRYPTION_SECRET", "")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrMissingEncryptionSecret)
}

func TestLoadDevelopmentFallsBackToDefaultSecret(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("ENCRYPTION_SECRET", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.EncryptionSecret)
}
