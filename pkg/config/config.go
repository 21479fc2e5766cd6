package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Oracle
	OracleBaseURL string
	OracleAccount string

	// Economics
	SeedAmount    uint64
	MinBet        uint64
	LockoutWindow time.Duration
	FeeSplitMode  string // "protocol" or "creator"

	// Monitors
	SettlementInterval time.Duration
	LifecycleInterval  time.Duration
	PoolSyncInterval   time.Duration
	MarkerTTL          time.Duration

	// Snapshot pinning
	PinningURL string

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Oracle defaults
		OracleBaseURL: getEnvOrDefault("ORACLE_BASE_URL", "http://localhost:9650"),
		OracleAccount: os.Getenv("ORACLE_ACCOUNT"),

		// Economics defaults
		SeedAmount:    getUint64OrDefault("SEED_AMOUNT", 10_000_000),
		MinBet:        getUint64OrDefault("MIN_BET", 1_000_000),
		LockoutWindow: getDurationOrDefault("LOCKOUT_WINDOW", 30*time.Minute),
		FeeSplitMode:  getEnvOrDefault("FEE_SPLIT_MODE", "protocol"),

		// Monitor defaults
		SettlementInterval: getDurationOrDefault("SETTLEMENT_INTERVAL", 30*time.Second),
		LifecycleInterval:  getDurationOrDefault("LIFECYCLE_INTERVAL", 15*time.Second),
		PoolSyncInterval:   getDurationOrDefault("POOL_SYNC_INTERVAL", 1*time.Minute),
		MarkerTTL:          getDurationOrDefault("MARKER_TTL", 7*24*time.Hour),

		// Snapshot pinning defaults (empty disables publication)
		PinningURL: os.Getenv("PINNING_URL"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "pricebet"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "pricebet123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "pricebet"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.OracleBaseURL == "" {
		return fmt.Errorf("ORACLE_BASE_URL cannot be empty")
	}

	if c.OracleAccount != "" && !common.IsHexAddress(c.OracleAccount) {
		return fmt.Errorf("ORACLE_ACCOUNT must be a hex address, got %q", c.OracleAccount)
	}

	if c.SeedAmount == 0 {
		return fmt.Errorf("SEED_AMOUNT must be positive")
	}

	if c.MinBet == 0 {
		return fmt.Errorf("MIN_BET must be positive")
	}

	if c.LockoutWindow <= 0 {
		return fmt.Errorf("LOCKOUT_WINDOW must be positive, got %s", c.LockoutWindow)
	}

	if c.FeeSplitMode != "protocol" && c.FeeSplitMode != "creator" {
		return fmt.Errorf("FEE_SPLIT_MODE must be 'protocol' or 'creator', got %q", c.FeeSplitMode)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

// OracleAddress returns the configured oracle account as an address.
func (c *Config) OracleAddress() common.Address {
	return common.HexToAddress(c.OracleAccount)
}

// PostgresDSN builds the connection string for the postgres storage mode.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getUint64OrDefault(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	uintVal, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return uintVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
