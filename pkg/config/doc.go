// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	MERIDIAN_HOST="0.0.0.0"
//	MERIDIAN_PORT="8080"
//	MERIDIAN_HEALTH_PORT="9090"
//	MERIDIAN_READ_TIMEOUT="15s"
//	MERIDIAN_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	MERIDIAN_POSTGRES_URL="postgres://localhost/meridian"
//	MERIDIAN_POSTGRES_MAX_CONNS="25"
//	MERIDIAN_POSTGRES_MIN_CONNS="5"
//
// Cache settings:
//
//	MERIDIAN_REDIS_URL="localhost:6379"
//	MERIDIAN_REDIS_POOL_SIZE="10"
//	MERIDIAN_USAGE_CACHE_TTL="5m"
//
// Quota settings:
//
//	MERIDIAN_QUOTA_SETTINGS_FILE="/etc/meridian/quota.yaml"
//	MERIDIAN_QUOTA_WATCH_SETTINGS="true"
//
// Notification settings:
//
//	MERIDIAN_WEBHOOK_URL="https://hooks.example.com/meridian"
//	MERIDIAN_WEBHOOK_SECRET="..."
//
// Observability settings:
//
//	MERIDIAN_LOG_LEVEL="info"  # debug, info, warn, error
//	MERIDIAN_METRICS_ENABLED="true"
//	MERIDIAN_OTEL_ENABLED="true"
//	MERIDIAN_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage: Uses database configuration
//   - pkg/observability: Uses observability configuration
package config
