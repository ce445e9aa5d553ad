// Package config loads runtime configuration from the environment and
// optional .env files.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var (
	mu       sync.RWMutex
	instance *Config
	loaded   bool
)

// Load loads configuration from environment variables and .env files.
// This should be called once at application startup.
func Load() error {
	mu.Lock()
	defer mu.Unlock()

	if loaded {
		return nil
	}

	if err := loadEnvFiles(); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := parse()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	instance = cfg
	loaded = true
	return nil
}

// Get returns the current configuration.
// Returns an error if configuration hasn't been loaded.
func Get() (*Config, error) {
	mu.RLock()
	defer mu.RUnlock()

	if !loaded || instance == nil {
		return nil, fmt.Errorf("configuration not loaded; call Load() first")
	}
	return instance, nil
}

// Reset clears the configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	loaded = false
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() error {
	// Load base .env file (optional)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	// Load environment-specific file (optional)
	env := os.Getenv("ENVIRONMENT")
	if env != "" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	// Load .env.local for local overrides (highest precedence, optional)
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}

	return nil
}
