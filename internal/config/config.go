package config

import (
	"time"

	"github.com/illufoxKusanagi/daily-reminder/internal/scheduler"
)

// Config carries the effective runtime configuration. Values come from
// built-in defaults overridden by command-line flags; no environment
// variables are consumed.
type Config struct {
	Server struct {
		// Host is fixed to loopback; the API is not reachable remotely.
		Host         string
		Port         int
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		IdleTimeout  time.Duration
	}
	Database struct {
		// Path overrides the per-user default location when non-empty.
		Path string
	}
	Scheduler struct {
		Tick time.Duration
	}
	Headless bool
	LogLevel string
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second

	cfg.Scheduler.Tick = scheduler.DefaultTick

	cfg.LogLevel = "info"

	return cfg
}
