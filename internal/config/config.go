// Package config loads the kit's configuration from the environment, with
// an optional YAML overlay for file-based deployment settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment selects the backend endpoint set.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Default base URLs per environment, overridable by API_BASE_URL.
var defaultBaseURLs = map[Environment]string{
	Development: "http://localhost:3000/api",
	Staging:     "https://staging-api.starterapp.dev/api",
	Production:  "https://api.starterapp.dev/api",
}

// Config is the full kit configuration.
type Config struct {
	Env Environment `env:"APP_ENV,default=development" yaml:"env"`

	API struct {
		BaseURL string        `env:"API_BASE_URL" yaml:"base_url"`
		Timeout time.Duration `env:"API_TIMEOUT,default=30s" yaml:"timeout"`
	} `yaml:"api"`

	Cache struct {
		StaleAfter      time.Duration `env:"CACHE_STALE_AFTER,default=5m" yaml:"stale_after"`
		GCAfter         time.Duration `env:"CACHE_GC_AFTER,default=30m" yaml:"gc_after"`
		QueryRetries    int           `env:"CACHE_QUERY_RETRIES,default=3" yaml:"query_retries"`
		MutationRetries int           `env:"CACHE_MUTATION_RETRIES,default=1" yaml:"mutation_retries"`
	} `yaml:"cache"`

	Logging struct {
		Level  string `env:"LOG_LEVEL,default=info" yaml:"level"`
		Format string `env:"LOG_FORMAT,default=console" yaml:"format"` // console or json
	} `yaml:"logging"`

	Prefs struct {
		Path string `env:"PREFS_PATH,default=starter.db" yaml:"path"`
	} `yaml:"prefs"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; a missing one is not an
// error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile overlays YAML settings from path on top of the environment
// configuration.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	switch c.Env {
	case Development, Staging, Production:
	case "":
		c.Env = Development
	default:
		return fmt.Errorf("unknown environment %q", c.Env)
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURLs[c.Env]
	}
	return nil
}
