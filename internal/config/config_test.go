package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("TOKEN_TTL", "")

	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.TxMaxRetries)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/ledger.db")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("TX_MAX_RETRIES", "3")

	cfg := Load()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/tmp/ledger.db", cfg.GetDBConnectionString())
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 3, cfg.TxMaxRetries)
}

func TestGetDBConnectionString(t *testing.T) {
	cfg := &Config{
		DBDriver:   DriverPostgres,
		DBHost:     "db",
		DBPort:     "5433",
		DBUser:     "u",
		DBPassword: "p",
		DBName:     "bank",
		DBSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=bank sslmode=disable", cfg.GetDBConnectionString())

	cfg.DBSource = "postgres://u:p@db:5433/bank"
	assert.Equal(t, "postgres://u:p@db:5433/bank", cfg.GetDBConnectionString())
}

func TestValidateRejectsBadSettings(t *testing.T) {
	base := func() *Config {
		t.Setenv("DB_DRIVER", "")
		return Load()
	}

	cfg := base()
	cfg.DBDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.TokenTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.BootstrapRootUsername = "admin"
	cfg.BootstrapRootPassword = ""
	assert.Error(t, cfg.Validate())

	t.Setenv("REQUEST_TIMEOUT", "soon")
	cfg = Load()
	assert.Error(t, cfg.Validate())
}
