package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Validate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Redis.Addr = ""
	cfg.Provider.BaseURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "provider: base_url")
}

func TestValidate_LockTTLMustExceedFetchTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Scheduler.LockTTL = duration{10 * time.Second}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock_ttl")
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "watch"
log_level = "debug"

[scheduler]
poll_interval = "30s"
workers = 4

[provider]
base_url = "https://pro-api.coingecko.com/api/v3"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "watch", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PollInterval.Duration)
	assert.Equal(t, 4, cfg.Scheduler.Workers)
	assert.Equal(t, "https://pro-api.coingecko.com/api/v3", cfg.Provider.BaseURL)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Resolver.ConfirmationWindow.Duration)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "resolve"`), 0o600))

	t.Setenv("RESOLVERD_MODE", "server")
	t.Setenv("RESOLVERD_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("RESOLVERD_SCHEDULER_POLL_INTERVAL", "5m")
	t.Setenv("RESOLVERD_SUPABASE_RUN_MIGRATIONS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.PollInterval.Duration)
	assert.False(t, cfg.Supabase.RunMigrations)
}
