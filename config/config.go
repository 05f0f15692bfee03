// Package config loads the trading core's tunables from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the engine-wide configuration for the trading core.
type Config struct {
	Environment string

	Matching MatchingConfig
	Greeks   GreeksConfig
	Redis    RedisConfig
	Postgres PostgresConfig
}

// MatchingConfig configures the SimulatedMatchingEngine.
type MatchingConfig struct {
	QueueDelay     time.Duration
	CommissionRate float64 // currency per share
	TickSize       float64
}

// GreeksConfig configures the OptionGreeksEngine scan cadence.
type GreeksConfig struct {
	ScanPeriod time.Duration
}

// RedisConfig configures the order-id allocator's backing store.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// PostgresConfig configures the terminal-order archive.
type PostgresConfig struct {
	DSN string
}

// Load reads configuration from the environment, loading a .env file
// first if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		Matching: MatchingConfig{
			QueueDelay:     getEnvAsDuration("MATCHING_QUEUE_DELAY", 100*time.Millisecond),
			CommissionRate: getEnvAsFloat("MATCHING_COMMISSION_RATE", 0.0),
			TickSize:       getEnvAsFloat("MATCHING_TICK_SIZE", 0.0001),
		},

		Greeks: GreeksConfig{
			ScanPeriod: getEnvAsDuration("GREEKS_SCAN_PERIOD", 250*time.Millisecond),
		},

		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		Postgres: PostgresConfig{
			DSN: getEnv("POSTGRES_DSN", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Matching.TickSize <= 0 {
		return fmt.Errorf("MATCHING_TICK_SIZE must be positive, got %v", c.Matching.TickSize)
	}
	if c.Greeks.ScanPeriod <= 0 {
		return fmt.Errorf("GREEKS_SCAN_PERIOD must be positive, got %v", c.Greeks.ScanPeriod)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}
