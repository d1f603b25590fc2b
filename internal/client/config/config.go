package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServerURL      string        `env:"GOPHAUTH_SERVER_URL"`
	RequestTimeout time.Duration `env:"GOPHAUTH_REQUEST_TIMEOUT"`
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig applies defaults, the JSON file, the environment and the flags
// found in args, in that order.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.ServerURL == "" {
		return nil, errors.New("config: server url must be set")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("config: request timeout must be positive, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}
