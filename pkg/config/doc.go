// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables
// with sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	SSOGATE_HOST="0.0.0.0"
//	SSOGATE_PORT="8080"
//	SSOGATE_HEALTH_PORT="9090"
//	SSOGATE_READ_TIMEOUT="15s"
//	SSOGATE_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	SSOGATE_POSTGRES_URL="postgres://localhost/ssogate"
//	SSOGATE_POSTGRES_MAX_CONNS="25"
//	SSOGATE_REDIS_URL="redis://localhost:6379"
//	SSOGATE_REDIS_POOL_SIZE="10"
//	SSOGATE_SESSION_RETENTION="168h"
//
// Enforcement settings:
//
//	SSOGATE_TOGGLES_PATH="/etc/ssogate/toggles.yaml"
//	SSOGATE_ROOT_CACHE_TTL="5m"
//
// Observability settings:
//
//	SSOGATE_LOG_LEVEL="info"  # debug, info, warn, error
//	SSOGATE_METRICS_ENABLED="true"
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
// # Related Packages
//
//   - pkg/session: uses the Redis session configuration
//   - pkg/observability: uses the observability configuration
package config
