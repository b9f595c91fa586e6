// Package config loads and validates the application configuration from a
// JSON file with environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/c360/cropvision/identify"
)

// Config is the top-level application configuration.
type Config struct {
	Service identify.Config `json:"service"`
	Metrics MetricsConfig   `json:"metrics"`
	Logging LoggingConfig   `json:"logging"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled    bool   `json:"enabled"`
	ListenAddr string `json:"listen_addr"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// Default returns a configuration with every field at its default.
func Default() Config {
	return Config{
		Service: identify.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Service.Validate(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// Load reads a configuration file, applies environment overrides, and
// validates the result. The file is merged over Default so partial files
// stay valid.
func Load(path string) (*Config, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployment environments override the settings that
// commonly differ between installs without editing the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CROPVISION_ENDPOINT"); v != "" {
		cfg.Service.Endpoint = v
	}
	if v := os.Getenv("CROPVISION_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CROPVISION_METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
}

// ToJSON renders the config for debugging.
func (c *Config) ToJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
