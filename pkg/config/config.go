package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/session"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Postgres configuration (hierarchy and provider storage)
	Postgres PostgresConfig

	// Session configuration (Redis session state)
	Session session.Config

	// Enforcement configuration
	Enforcement EnforcementConfig

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

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// EnforcementConfig holds enforcement engine settings
type EnforcementConfig struct {
	// TogglesPath is the expiry-mode toggle file; empty disables Mode B
	// everywhere
	TogglesPath string

	// RootCacheTTL bounds how long a resolved root ancestor is reused
	RootCacheTTL time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Postgres:      loadPostgresConfig(),
		Session:       loadSessionConfig(),
		Enforcement:   loadEnforcementConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SSOGATE_HOST", "0.0.0.0"),
		Port:            getEnv("SSOGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SSOGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SSOGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SSOGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SSOGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SSOGATE_HEALTH_PORT", "9090"),
	}
}

func loadPostgresConfig() PostgresConfig {
	return PostgresConfig{
		URL:             getEnv("SSOGATE_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("SSOGATE_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("SSOGATE_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("SSOGATE_POSTGRES_CONN_LIFETIME", 30*time.Minute),
	}
}

func loadSessionConfig() session.Config {
	return session.Config{
		RedisURL:        getEnv("SSOGATE_REDIS_URL", "redis://localhost:6379"),
		RedisPassword:   getEnv("SSOGATE_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("SSOGATE_REDIS_DB", 0),
		RedisMaxRetries: getEnvInt("SSOGATE_REDIS_MAX_RETRIES", 3),
		RedisPoolSize:   getEnvInt("SSOGATE_REDIS_POOL_SIZE", 10),
		KeyPrefix:       getEnv("SSOGATE_SESSION_KEY_PREFIX", ""),
		Retention:       getEnvDuration("SSOGATE_SESSION_RETENTION", 0),
	}
}

func loadEnforcementConfig() EnforcementConfig {
	return EnforcementConfig{
		TogglesPath:  getEnv("SSOGATE_TOGGLES_PATH", ""),
		RootCacheTTL: getEnvDuration("SSOGATE_ROOT_CACHE_TTL", 5*time.Minute),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("SSOGATE_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("SSOGATE_METRICS_ENABLED", true),
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
	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Session.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
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
