package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8000"`
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	MaxScriptBytes int64         `envconfig:"MAX_SCRIPT_BYTES" default:"1048576"`
	ShutdownGrace  time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`
	AllowedOrigins []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// SandboxConfig holds script runtime configuration.
type SandboxConfig struct {
	PoolSize         int           `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
	PoolWait         time.Duration `envconfig:"SANDBOX_POOL_WAIT" default:"5s"`
	Timeout          time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	MaxCallStackSize int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
	MaxTasks         int           `envconfig:"SANDBOX_MAX_TASKS" default:"10000"`
	MaxBufferBytes   int           `envconfig:"SANDBOX_MAX_BUFFER_BYTES" default:"16777216"`
	ContextBridge    string        `envconfig:"SANDBOX_CONTEXT_BRIDGE" default:"embedder"`
	EnableConsole    bool          `envconfig:"SANDBOX_ENABLE_CONSOLE" default:"true"`
	EnableTimers     bool          `envconfig:"SANDBOX_ENABLE_TIMERS" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Enabled   bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"jsruntime"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects settings the runtime cannot start with.
func (c *Config) Validate() error {
	switch c.Sandbox.ContextBridge {
	case "embedder", "local":
	default:
		return fmt.Errorf("invalid SANDBOX_CONTEXT_BRIDGE %q: want embedder or local", c.Sandbox.ContextBridge)
	}
	if c.Sandbox.PoolSize <= 0 {
		return fmt.Errorf("invalid SANDBOX_POOL_SIZE %d: must be positive", c.Sandbox.PoolSize)
	}
	if c.Sandbox.PoolWait <= 0 {
		return fmt.Errorf("invalid SANDBOX_POOL_WAIT %s: must be positive", c.Sandbox.PoolWait)
	}
	if c.Sandbox.MaxBufferBytes <= 0 {
		return fmt.Errorf("invalid SANDBOX_MAX_BUFFER_BYTES %d: must be positive", c.Sandbox.MaxBufferBytes)
	}
	if c.Sandbox.Timeout < 0 {
		return fmt.Errorf("invalid SANDBOX_TIMEOUT %s: must not be negative", c.Sandbox.Timeout)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "0.0.0.0",
			MaxScriptBytes: 1 << 20,
			ShutdownGrace:  10 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Sandbox: SandboxConfig{
			PoolSize:         4,
			PoolWait:         5 * time.Second,
			Timeout:          5 * time.Second,
			MaxCallStackSize: 1024,
			MaxTasks:         10000,
			MaxBufferBytes:   16 << 20,
			ContextBridge:    "embedder",
			EnableConsole:    true,
			EnableTimers:     true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "jsruntime",
		},
	}
}
