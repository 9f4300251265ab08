// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"paycheck-tracker/internal/log"
	"paycheck-tracker/internal/storage"
)

type Config struct {
	// HTTP server
	Port            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	// Database
	DBDriver    string
	DBPath      string
	DatabaseURL string

	// AMQP; events are disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string

	// First user, created when the database has none.
	AdminUser     string
	AdminPassword string
	AdminEmail    string

	LogLevel string
	// StrictPayCycle rejects income whose last_pay is not before recent_pay.
	StrictPayCycle bool
}

// Load reads the configuration from the environment, filling in defaults.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8000"),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DBDriver:    getEnv("DB_DRIVER", storage.DriverSQLite),
		DBPath:      getEnv("DB_PATH", "./data/paycheck.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "paycheck"),

		AdminUser:     getEnv("ADMIN_USER", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StrictPayCycle: getEnvBool("STRICT_PAY_CYCLE", false),
	}
}

// DSN returns the connection string for the selected driver.
func (c *Config) DSN() string {
	if c.DBDriver == storage.DriverPostgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case storage.DriverSQLite:
		if c.DBPath == "" {
			problems = append(problems, "DB_PATH cannot be empty when using the sqlite driver")
		}
	case storage.DriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when using the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid database driver '%s': must be one of [%s %s]", c.DBDriver, storage.DriverSQLite, storage.DriverPostgres))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.AdminUser == "") != (c.AdminPassword == "") {
		problems = append(problems, "ADMIN_USER and ADMIN_PASSWORD must be set together")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if c.ShutdownTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// EnsureDataDir creates the directory holding the sqlite file.
func (c *Config) EnsureDataDir() error {
	if c.DBDriver != storage.DriverSQLite || strings.HasPrefix(c.DBPath, ":memory:") || strings.HasPrefix(c.DBPath, "file:") {
		return nil
	}
	dir := filepath.Dir(c.DBPath)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory '%s': %w", dir, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
