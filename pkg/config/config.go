package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meridianhq/meridian/pkg/observability"
	"github.com/meridianhq/meridian/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database storage.ConnectionConfig

	// Redis configuration
	Redis RedisConfig

	// Quota configuration
	Quota QuotaConfig

	// Notification configuration
	Notifications NotificationConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// RedisConfig holds Redis connection settings. Redis is optional; with an
// empty URL the service runs without a shared cache.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// QuotaConfig holds quota enforcement settings
type QuotaConfig struct {
	// SettingsFile points at the YAML file with per-metric thresholds.
	// Empty means built-in defaults only.
	SettingsFile string

	// WatchSettings reloads the settings file on change.
	WatchSettings bool

	// UsageCacheTTL bounds staleness of cached usage aggregates.
	UsageCacheTTL time.Duration
}

// NotificationConfig holds warning delivery settings
type NotificationConfig struct {
	// WebhookURL receives quota events; empty disables the webhook channel.
	WebhookURL string

	// WebhookSecret signs deliveries when set.
	WebhookSecret string

	// UrgentWebhookURL additionally receives urgent events (usage at or
	// above 90% or three or fewer grace days left); empty disables the
	// urgent channel.
	UrgentWebhookURL string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Quota:         loadQuotaConfig(),
		Notifications: loadNotificationConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MERIDIAN_HOST", "0.0.0.0"),
		Port:            getEnv("MERIDIAN_PORT", "8080"),
		ReadTimeout:     getEnvDuration("MERIDIAN_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MERIDIAN_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("MERIDIAN_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MERIDIAN_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("MERIDIAN_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads PostgreSQL pool configuration from environment
func loadDatabaseConfig() storage.ConnectionConfig {
	cfg := storage.DefaultConnectionConfig(getEnv("MERIDIAN_POSTGRES_URL", ""))

	if maxConns := getEnvInt("MERIDIAN_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("MERIDIAN_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("MERIDIAN_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}

	return cfg
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("MERIDIAN_REDIS_URL", ""),
		Password: getEnv("MERIDIAN_REDIS_PASSWORD", ""),
		DB:       getEnvInt("MERIDIAN_REDIS_DB", 0),
		PoolSize: getEnvInt("MERIDIAN_REDIS_POOL_SIZE", 10),
	}
}

// loadQuotaConfig loads quota enforcement configuration from environment
func loadQuotaConfig() QuotaConfig {
	return QuotaConfig{
		SettingsFile:  getEnv("MERIDIAN_QUOTA_SETTINGS_FILE", ""),
		WatchSettings: getEnvBool("MERIDIAN_QUOTA_WATCH_SETTINGS", true),
		UsageCacheTTL: getEnvDuration("MERIDIAN_USAGE_CACHE_TTL", 5*time.Minute),
	}
}

// loadNotificationConfig loads notification configuration from environment
func loadNotificationConfig() NotificationConfig {
	return NotificationConfig{
		WebhookURL:       getEnv("MERIDIAN_WEBHOOK_URL", ""),
		WebhookSecret:    getEnv("MERIDIAN_WEBHOOK_SECRET", ""),
		UrgentWebhookURL: getEnv("MERIDIAN_URGENT_WEBHOOK_URL", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("MERIDIAN_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("MERIDIAN_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("MERIDIAN_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("MERIDIAN_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("MERIDIAN_OTEL_SERVICE_NAME", "meridian-api"),
		OTelServiceVersion: getEnv("MERIDIAN_OTEL_SERVICE_VERSION", observability.Version),
		OTelInsecure:       getEnvBool("MERIDIAN_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("MERIDIAN_POSTGRES_URL is required")
	}

	if c.Quota.UsageCacheTTL <= 0 {
		return fmt.Errorf("usage cache TTL must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
