package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// RulesPath points at a YAML rules file; empty means embedded defaults.
	RulesPath string `envconfig:"MM_RULES_PATH" default:""`

	InputDir  string `envconfig:"MM_INPUT_DIR" default:"data/raw"`
	OutputDir string `envconfig:"MM_OUTPUT_DIR" default:"data/clustered"`

	HTTPHost string `envconfig:"MM_HTTP_HOST" default:"127.0.0.1"`
	HTTPPort int    `envconfig:"MM_HTTP_PORT" default:"8080"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return fmt.Errorf("MM_INPUT_DIR is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("MM_OUTPUT_DIR is required")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("MM_HTTP_PORT must be in [1,65535]")
	}
	return nil
}
