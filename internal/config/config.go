package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Sampler  SamplerConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// DataConfig holds input settings
type DataConfig struct {
	TrialFile string
}

// SamplerConfig holds posterior sampling settings
type SamplerConfig struct {
	Draws        int
	Tune         int
	Chains       int
	TargetAccept float64
	Seed         int64
}

// DatabaseConfig holds optional artifact storage settings
type DatabaseConfig struct {
	URL string // empty disables persistence
}

// ServerConfig holds results API settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data: DataConfig{
			TrialFile: os.Getenv("TRIAL_FILE"),
		},
		Sampler: SamplerConfig{
			Draws:        getEnvIntOrDefault("SAMPLER_DRAWS", 1000),
			Tune:         getEnvIntOrDefault("SAMPLER_TUNE", 1000),
			Chains:       getEnvIntOrDefault("SAMPLER_CHAINS", 4),
			TargetAccept: getEnvFloatOrDefault("SAMPLER_TARGET_ACCEPT", 0.44),
			Seed:         getEnvInt64OrDefault("SAMPLER_SEED", 42),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Data.TrialFile == "" {
		return fmt.Errorf("TRIAL_FILE is required")
	}
	if config.Sampler.Draws <= 0 || config.Sampler.Chains <= 0 {
		return fmt.Errorf("sampler draws and chains must be positive")
	}
	if config.Sampler.TargetAccept <= 0 || config.Sampler.TargetAccept >= 1 {
		return fmt.Errorf("sampler target accept must be in (0,1)")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
