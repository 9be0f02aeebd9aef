package main

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the server settings. Every field can be set in the YAML
// file and overridden by its WRAP_* environment variable.
type Config struct {
	Addr         string  `yaml:"addr" env:"WRAP_ADDR" env-default:":8080" env-description:"Listen address"`
	Debug        bool    `yaml:"debug" env:"WRAP_DEBUG" env-default:"true" env-description:"Return failure traces to clients"`
	ClientErrors bool    `yaml:"client_errors" env:"WRAP_CLIENT_ERRORS" env-description:"Answer rejected requests with 400"`
	BodyLimit    int64   `yaml:"body_limit" env:"WRAP_BODY_LIMIT" env-default:"1048576" env-description:"Maximum request body in bytes"`
	RateLimit    Limits  `yaml:"rate_limit"`
	Metrics      Metrics `yaml:"metrics"`
}

// Limits configures per route and client throttling.
type Limits struct {
	Rate  float64 `yaml:"rate" env:"WRAP_RATE" env-default:"50" env-description:"Requests per second, 0 disables"`
	Burst int     `yaml:"burst" env:"WRAP_BURST" env-default:"100"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Path string `yaml:"path" env:"WRAP_METRICS_PATH" env-default:"/metrics"`
}

// loadConfig reads path when set, then applies the environment.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}
