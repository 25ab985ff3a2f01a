package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Enrollment.TxMaxRetries)
	assert.Equal(t, 25*time.Millisecond, cfg.Enrollment.TxRetryBackoff)
	assert.Equal(t, 10*time.Minute, cfg.English.ProgressCacheTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Redis.OpTimeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("ENROLLMENT_TX_MAX_RETRIES", "5")
	t.Setenv("ENROLLMENT_TX_RETRY_BACKOFF", "bogus")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Enrollment.TxMaxRetries)
	assert.Equal(t, 25*time.Millisecond, cfg.Enrollment.TxRetryBackoff)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
