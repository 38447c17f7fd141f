// Package config loads server configuration from the environment and
// gameplay tunables from a YAML file.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Port       int    `env:"WARFRONT_PORT" envDefault:"8080"`
	DBPath     string `env:"WARFRONT_DB_PATH" envDefault:"data/warfront.db"`
	AdminKey   string `env:"WARFRONT_ADMIN_KEY"` // empty disables admin POST endpoints
	TickRateHz int    `env:"WARFRONT_TICK_RATE_HZ" envDefault:"10"`
	Tunables   string `env:"WARFRONT_TUNABLES"` // path to tunables.yaml; empty uses defaults
	Seed       int64  `env:"WARFRONT_SEED" envDefault:"42"`
	LogLevel   string `env:"WARFRONT_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickRateHz <= 0 {
		return cfg, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRateHz)
	}
	return cfg, nil
}
