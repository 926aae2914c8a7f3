package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database   DatabaseConfig
	Scheduler  SchedulerConfig
	Plaid      PlaidConfig
	SimpleFin  SimpleFinConfig
	Encryption EncryptionConfig
	Telemetry  TelemetryConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SchedulerConfig struct {
	Enabled      bool
	Interval     time.Duration
	WorkerCount  int
	QueueSize    int
	RunOnStartup bool
}

type PlaidConfig struct {
	ClientID    string
	Secret      string
	Environment string // "sandbox", "development" or "production"
}

type SimpleFinConfig struct {
	// AccessURL is the claimed SimpleFin access URL (contains credentials).
	// Items that carry their own access URL take precedence; this is the
	// fallback for items linked before per-item tokens were stored.
	AccessURL string
}

type EncryptionConfig struct {
	Key string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	// Parse scheduler configuration
	schedulerEnabled := getBoolEnv("SYNC_ENABLED", true)
	schedulerInterval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	if schedulerInterval <= 0 {
		return nil, fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	schedulerWorkers, err := strconv.Atoi(getEnv("SYNC_WORKERS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_WORKERS: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SYNC_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_QUEUE_SIZE: %w", err)
	}
	schedulerRunOnStartup := getBoolEnv("SYNC_RUN_ON_STARTUP", true)

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "budget"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "budget"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      schedulerEnabled,
			Interval:     schedulerInterval,
			WorkerCount:  schedulerWorkers,
			QueueSize:    schedulerQueueSize,
			RunOnStartup: schedulerRunOnStartup,
		},
		Plaid: PlaidConfig{
			ClientID:    getEnv("PLAID_CLIENT_ID", ""),
			Secret:      getEnv("PLAID_SECRET", ""),
			Environment: strings.ToLower(getEnv("PLAID_ENV", "sandbox")),
		},
		SimpleFin: SimpleFinConfig{
			AccessURL: getEnv("SIMPLEFIN_ACCESS_URL", ""),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "budget-syncd"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
	}

	// Validate required fields
	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	switch cfg.Plaid.Environment {
	case "sandbox", "development", "production":
	default:
		return nil, fmt.Errorf("invalid PLAID_ENV: %q", cfg.Plaid.Environment)
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
