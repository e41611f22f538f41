// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/grantway/grantway/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
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

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("GRANTWAY_HOST", "0.0.0.0"),
			Port:            getEnv("GRANTWAY_PORT", "8080"),
			ReadTimeout:     getEnvDuration("GRANTWAY_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("GRANTWAY_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("GRANTWAY_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("GRANTWAY_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("GRANTWAY_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("GRANTWAY_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("GRANTWAY_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("GRANTWAY_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("GRANTWAY_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("GRANTWAY_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("GRANTWAY_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("GRANTWAY_POSTGRES_URL is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("GRANTWAY_POSTGRES_MAX_CONNS must be positive")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("GRANTWAY_PORT and GRANTWAY_HEALTH_PORT must differ")
	}
	return nil
}

// Addr returns the main listen address
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// HealthAddr returns the health/metrics listen address
func (c *ServerConfig) HealthAddr() string {
	return c.Host + ":" + c.HealthPort
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
