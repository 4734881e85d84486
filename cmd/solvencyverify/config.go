// config.go - Configuration for the solvency verifier CLI
package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the verifier configuration. Every field can be overridden by
// a command-line flag.
type Config struct {
	// TrustedVKHash is the hex-encoded out-of-band trust anchor the
	// published verifying-key hash must match.
	TrustedVKHash string `json:"trusted_vk_hash"`

	// SnarkTimeoutSeconds bounds a single pairing check.
	SnarkTimeoutSeconds int `json:"snark_timeout_seconds"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SnarkTimeoutSeconds: 30,
		LogLevel:            "info",
	}
}

// LoadConfig loads configuration from file, falling back to defaults when
// the file does not exist.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := DefaultConfig()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SnarkTimeoutSeconds <= 0 {
		return fmt.Errorf("snark_timeout_seconds must be positive")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
