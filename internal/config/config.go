package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

// Config holds the runtime settings, read from the environment.
type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	// DBSource is a complete DSN and wins over the individual DB_* fields.
	DBSource   string
	SQLitePath string

	ServerPort     string
	RequestTimeout time.Duration

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	SessionSweepInterval time.Duration
	TxMaxRetries         int

	CORSAllowedOrigins []string

	BootstrapRootUsername string
	BootstrapRootPassword string
}

// Load reads the configuration from environment variables, falling back to
// development defaults.
func Load() *Config {
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", DriverPostgres),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "bank"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBSource:   os.Getenv("DB_SOURCE"),
		SQLitePath: getEnv("SQLITE_PATH", "ledger.db"),

		ServerPort:     getEnv("SERVER_PORT", "8080"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "bank-ledger"),
		TokenTTL:  getDuration("TOKEN_TTL", time.Hour),

		SessionSweepInterval: getDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		TxMaxRetries:         getInt("TX_MAX_RETRIES", 5),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://127.0.0.1:5500", "http://localhost:5500"}),

		BootstrapRootUsername: os.Getenv("BOOTSTRAP_ROOT_USERNAME"),
		BootstrapRootPassword: os.Getenv("BOOTSTRAP_ROOT_PASSWORD"),
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDriver == DriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.TxMaxRetries < 0 {
		return fmt.Errorf("TX_MAX_RETRIES must not be negative")
	}
	if (c.BootstrapRootUsername == "") != (c.BootstrapRootPassword == "") {
		return fmt.Errorf("BOOTSTRAP_ROOT_USERNAME and BOOTSTRAP_ROOT_PASSWORD must be set together")
	}
	return nil
}

// GetDBConnectionString returns the DSN for the configured driver.
func (c *Config) GetDBConnectionString() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	if c.DBSource != "" {
		return c.DBSource
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Validate reports it.
		return 0
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
