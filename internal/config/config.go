// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Trust list
	TrustListPath string // JSON trust list override; embedded default if empty

	// Analysis settings
	ContextThresholdMinutes int // minutes since last interaction before an OTP is out-of-context
	AttackWindowMinutes     int // trailing window for the OTP-flood check
	MaxOTPsInWindow         int // strictly more than this inside the window flags an attack

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; tracing disabled if empty
}

// Defaults.
const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultContextThreshold = 2
	DefaultAttackWindow     = 5
	DefaultMaxOTPsInWindow  = 3
)

// Load reads configuration from environment variables. It loads a .env file
// if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", DefaultPort),
		Env:                     getEnv("ENV", DefaultEnv),
		LogLevel:                getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:             os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		TrustListPath:           os.Getenv("TRUST_LIST_PATH"),
		ContextThresholdMinutes: getEnvInt("CONTEXT_THRESHOLD_MINUTES", DefaultContextThreshold),
		AttackWindowMinutes:     getEnvInt("ATTACK_WINDOW_MINUTES", DefaultAttackWindow),
		MaxOTPsInWindow:         getEnvInt("MAX_OTPS_IN_WINDOW", DefaultMaxOTPsInWindow),
		OTLPEndpoint:            os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.ContextThresholdMinutes <= 0 {
		return fmt.Errorf("CONTEXT_THRESHOLD_MINUTES must be positive")
	}
	if c.AttackWindowMinutes <= 0 {
		return fmt.Errorf("ATTACK_WINDOW_MINUTES must be positive")
	}
	if c.MaxOTPsInWindow < 1 {
		return fmt.Errorf("MAX_OTPS_IN_WINDOW must be at least 1")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
