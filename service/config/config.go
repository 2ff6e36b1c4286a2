package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Limit bounds shared with the fetch layer. Duplicated here so config has no
// dependency on service/solana.
const (
	minLimit = 5
	maxLimit = 50
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// NATS configuration. Empty disables publishing and streaming.
	NATSURL string

	// Tracing configuration. Empty installs a no-op tracer.
	OTLPEndpoint string

	// Solana configuration
	SolanaRPCURL  string
	SolanaNetwork string
	RPCTimeout    time.Duration

	// Analysis defaults
	DefaultWalletLimit  int
	DefaultProgramLimit int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}
	cfg.SolanaNetwork = getEnvOrDefault("SOLANA_NETWORK", "mainnet")

	timeout, err := parseDuration("RPC_TIMEOUT", "15s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RPCTimeout = timeout
	}

	// Analysis defaults
	walletLimit, err := parseInt("DEFAULT_WALLET_LIMIT", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DefaultWalletLimit = walletLimit
	}

	programLimit, err := parseInt("DEFAULT_PROGRAM_LIMIT", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DefaultProgramLimit = programLimit
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.ServerAddr == "" {
		errs = append(errs, fmt.Errorf("ServerAddr is required"))
	}

	if c.RPCTimeout < time.Second {
		errs = append(errs, fmt.Errorf("RPCTimeout must be at least 1 second"))
	}

	if c.DefaultWalletLimit < minLimit || c.DefaultWalletLimit > maxLimit {
		errs = append(errs, fmt.Errorf("DefaultWalletLimit must be between %d and %d, got %d",
			minLimit, maxLimit, c.DefaultWalletLimit))
	}

	if c.DefaultProgramLimit < minLimit || c.DefaultProgramLimit > maxLimit {
		errs = append(errs, fmt.Errorf("DefaultProgramLimit must be between %d and %d, got %d",
			minLimit, maxLimit, c.DefaultProgramLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
