package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxScriptBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)

	// Sandbox config
	assert.Equal(t, 4, cfg.Sandbox.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Sandbox.PoolWait)
	assert.Equal(t, 16<<20, cfg.Sandbox.MaxBufferBytes)
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, "embedder", cfg.Sandbox.ContextBridge)
	assert.True(t, cfg.Sandbox.EnableConsole)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                     "9000",
		"HOST":                     "127.0.0.1",
		"CORS_ORIGINS":             "https://a.example,https://b.example",
		"SANDBOX_POOL_SIZE":        "8",
		"SANDBOX_TIMEOUT":          "250ms",
		"SANDBOX_CONTEXT_BRIDGE":   "local",
		"SANDBOX_ENABLE_CONSOLE":   "false",
		"SANDBOX_MAX_TASKS":        "50",
		"SANDBOX_POOL_WAIT":        "2s",
		"SANDBOX_MAX_BUFFER_BYTES": "4096",
		"LOG_LEVEL":                "debug",
		"LOG_DEV":                  "true",
		"RATE_LIMIT_RPS":           "500",
		"RATE_LIMIT_BURST":         "1000",
		"RATE_LIMIT_ENABLED":       "false",
		"METRICS_NAMESPACE":        "edge",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, 8, cfg.Sandbox.PoolSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Sandbox.Timeout)
	assert.Equal(t, "local", cfg.Sandbox.ContextBridge)
	assert.False(t, cfg.Sandbox.EnableConsole)
	assert.Equal(t, 50, cfg.Sandbox.MaxTasks)
	assert.Equal(t, 2*time.Second, cfg.Sandbox.PoolWait)
	assert.Equal(t, 4096, cfg.Sandbox.MaxBufferBytes)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)

	assert.Equal(t, "edge", cfg.Metrics.Namespace)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown bridge", key: "SANDBOX_CONTEXT_BRIDGE", value: "threads"},
		{name: "zero pool", key: "SANDBOX_POOL_SIZE", value: "0"},
		{name: "zero pool wait", key: "SANDBOX_POOL_WAIT", value: "0s"},
		{name: "negative buffer cap", key: "SANDBOX_MAX_BUFFER_BYTES", value: "-1"},
		{name: "bad duration", key: "SANDBOX_TIMEOUT", value: "soon"},
		{name: "bad int", key: "RATE_LIMIT_RPS", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}
