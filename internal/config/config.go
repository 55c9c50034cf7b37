// Package config handles application configuration from environment variables
package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jlhuang/astrod/internal/astro"
)

// Config holds all application configuration
type Config struct {
	Port        string        `env:"PORT" envDefault:"5000"`
	CacheFile   string        `env:"CACHE_FILE" envDefault:"astro_cache.json"`
	BaseURL     string        `env:"ASTRO_BASE_URL"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
}

// Load reads configuration from environment variables
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = astro.DefaultBaseURL
	}
	return cfg, nil
}
