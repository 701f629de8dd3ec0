// Package config provides configuration management for the quant core.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	LogLevel     string
	DevMode      bool
	Workers      int    // bounded worker pool size for grid/frontier dispatch
	TunablesPath string // optional YAML overrides for numeric tunables
	Tunables     Tunables
}

// Load reads configuration from environment variables and the optional
// tunables file.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		Workers:      getEnvAsInt("QUANTCORE_WORKERS", 4),
		TunablesPath: getEnv("QUANTCORE_TUNABLES", ""),
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("QUANTCORE_WORKERS must be >= 1, got %d", cfg.Workers)
	}

	tunables, err := LoadTunables(cfg.TunablesPath)
	if err != nil {
		return nil, err
	}
	cfg.Tunables = tunables

	return cfg, nil
}

// getEnv retrieves an environment variable value, returning a fallback if the
// variable is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer.
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvAsBool retrieves an environment variable as a boolean.
func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
