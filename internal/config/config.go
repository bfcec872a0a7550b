package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Source types understood by the data package
const (
	SourceTypeMock      = "mock"
	SourceTypeWebSocket = "websocket"
	SourceTypeREST      = "rest"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	API       APIConfig
	Scan      ScanConfig
	Primary   SourceConfig
	Secondary SourceConfig
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port            int
	RateLimitRPS    int
	TrustProxy      bool // key rate limits on X-Forwarded-For / X-Real-IP
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// ScanConfig holds scan pipeline configuration
type ScanConfig struct {
	ResultLimit int
	RulesPath   string
}

// SourceConfig holds configuration for one item source
type SourceConfig struct {
	Name    string // "primary" or "secondary"
	Type    string // "mock", "websocket" or "rest"
	URL     string
	Timeout time.Duration

	// Streaming
	SnapshotWait time.Duration

	// Polling
	RateLimitRPS int // 0 disables client-side limiting
	MaxRetries   int
	RetryDelay   time.Duration

	// Simulation
	SymbolPrefix string
	SymbolCount  int
	EmptyVenues  []string // venues for which the simulated source has no data
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		API: APIConfig{
			Port:            getEnvAsInt("API_PORT", 8090),
			RateLimitRPS:    getEnvAsInt("API_RATE_LIMIT_RPS", 100),
			TrustProxy:      getEnvAsBool("API_TRUST_PROXY", false),
			RequestTimeout:  getEnvAsDuration("API_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scan: ScanConfig{
			ResultLimit: getEnvAsInt("SCAN_RESULT_LIMIT", 50),
			RulesPath:   getEnv("SCORING_RULES_PATH", "scoring_rules.yaml"),
		},
		Primary: SourceConfig{
			Name:         "primary",
			Type:         getEnv("PRIMARY_SOURCE_TYPE", SourceTypeMock),
			URL:          getEnv("PRIMARY_SOURCE_URL", ""),
			Timeout:      getEnvAsDuration("PRIMARY_SOURCE_TIMEOUT", 3*time.Second),
			SnapshotWait: getEnvAsDuration("PRIMARY_SNAPSHOT_WAIT", 500*time.Millisecond),
			SymbolPrefix: getEnv("PRIMARY_SYMBOL_PREFIX", "SYM"),
			SymbolCount:  getEnvAsInt("PRIMARY_SYMBOL_COUNT", 100),
			EmptyVenues:  getEnvAsStringSlice("PRIMARY_EMPTY_VENUES", []string{}),
		},
		Secondary: SourceConfig{
			Name:         "secondary",
			Type:         getEnv("SECONDARY_SOURCE_TYPE", SourceTypeMock),
			URL:          getEnv("SECONDARY_SOURCE_URL", ""),
			Timeout:      getEnvAsDuration("SECONDARY_SOURCE_TIMEOUT", 5*time.Second),
			RateLimitRPS: getEnvAsInt("SECONDARY_RATE_LIMIT_RPS", 10),
			MaxRetries:   getEnvAsInt("SECONDARY_MAX_RETRIES", 2),
			RetryDelay:   getEnvAsDuration("SECONDARY_RETRY_DELAY", 200*time.Millisecond),
			SymbolPrefix: getEnv("SECONDARY_SYMBOL_PREFIX", "SYMR"),
			SymbolCount:  getEnvAsInt("SECONDARY_SYMBOL_COUNT", 50),
			EmptyVenues:  getEnvAsStringSlice("SECONDARY_EMPTY_VENUES", []string{}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535")
	}
	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("API_REQUEST_TIMEOUT must be positive")
	}
	if c.Scan.ResultLimit <= 0 {
		return fmt.Errorf("SCAN_RESULT_LIMIT must be positive")
	}
	if err := c.Primary.validate("PRIMARY", SourceTypeMock, SourceTypeWebSocket); err != nil {
		return err
	}
	if err := c.Secondary.validate("SECONDARY", SourceTypeMock, SourceTypeREST); err != nil {
		return err
	}
	return nil
}

func (s *SourceConfig) validate(prefix string, allowed ...string) error {
	known := false
	for _, t := range allowed {
		if s.Type == t {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%s_SOURCE_TYPE must be one of %s, got %q", prefix, strings.Join(allowed, ", "), s.Type)
	}
	if s.Type != SourceTypeMock && s.URL == "" {
		return fmt.Errorf("%s_SOURCE_URL is required for %s sources", prefix, s.Type)
	}
	if s.Type == SourceTypeMock && s.SymbolCount <= 0 {
		return fmt.Errorf("%s_SYMBOL_COUNT must be positive", prefix)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("%s_MAX_RETRIES must not be negative", prefix)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
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

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
