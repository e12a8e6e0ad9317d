package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"bank-ledger/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLExecutor represents both sql.DB and sql.Tx
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Ensure sql.DB and sql.Tx implement SQLExecutor
var (
	_ SQLExecutor = (*sql.DB)(nil)
	_ SQLExecutor = (*sql.Tx)(nil)
)

// Open connects to the configured database, tunes the pool for the driver
// and verifies the connection.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(dialect.driverName, dialect.DSN(cfg.GetDBConnectionString()))
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s: %w", dialect.driverName, err)
	}

	if dialect.singleWriter {
		// One connection keeps every transaction exclusive and keeps a
		// :memory: database alive for the lifetime of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s: %w", dialect.driverName, err)
	}

	if logger != nil {
		logger.Info("Successfully connected to database", "driver", dialect.driverName)
	}
	return db, dialect, nil
}

// Now is the store clock: UTC at microsecond precision, the finest
// resolution PostgreSQL keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
