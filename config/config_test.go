package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, int64(60), cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.Equal(t, 4, cfg.TaskWorkers)
	assert.Equal(t, 24*time.Hour, cfg.TaskTTL)
	assert.Equal(t, 100, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Zero(t, cfg.SessionDeadline)
	assert.Zero(t, cfg.ProbeRate)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.APIKey)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORTSCAN_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PORTSCAN_API_KEY", "s3cret")
	t.Setenv("PORTSCAN_PROBE_TIMEOUT", "750ms")
	t.Setenv("PORTSCAN_SESSION_DEADLINE", "30")
	t.Setenv("PORTSCAN_PROBE_RATE", "250.5")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "s3cret", cfg.APIKey)
	assert.Equal(t, 750*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, 30*time.Second, cfg.SessionDeadline)
	assert.Equal(t, 250.5, cfg.ProbeRate)
}

func TestFromEnvRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"REDIS_DB":               "zero",
		"PORTSCAN_PROBE_TIMEOUT": "soon",
		"PORTSCAN_PROBE_RATE":    "fast",
		"PORTSCAN_TASK_WORKERS":  "0",
		"PORTSCAN_CONCURRENCY":   "-5",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFromEnvRejectsNegative(t *testing.T) {
	tests := map[string]string{
		"PORTSCAN_PROBE_RATE":       "-10",
		"PORTSCAN_TASK_TTL":         "-1h",
		"PORTSCAN_SESSION_DEADLINE": "-5",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFromEnvAcceptsZeroMeanings(t *testing.T) {
	t.Setenv("PORTSCAN_PROBE_RATE", "0")
	t.Setenv("PORTSCAN_TASK_TTL", "0")
	t.Setenv("PORTSCAN_SESSION_DEADLINE", "0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Zero(t, cfg.ProbeRate)
	assert.Zero(t, cfg.TaskTTL)
	assert.Zero(t, cfg.SessionDeadline)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORTSCAN_TASK_WORKERS=9\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("PORTSCAN_TASK_WORKERS")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.TaskWorkers)
}

func TestLoadWithoutDotEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	assert.NoError(t, err)
}
