package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bank-ledger/internal/config"
)

// Dialect captures what differs between the supported databases: driver
// name, placeholder style, row locking, snapshot reads and error codes.
type Dialect struct {
	name         string
	driverName   string
	migrations   string
	dollarParams bool
	forUpdate    string
	singleWriter bool
	pragmas      []string
	readOptions  *sql.TxOptions
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres, config.DriverPgx:
		return Dialect{
			name:         driver,
			driverName:   driver,
			migrations:   "postgres",
			dollarParams: true,
			forUpdate:    " FOR UPDATE",
			readOptions:  &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
		}, nil
	case config.DriverSQLite:
		return Dialect{
			name:         driver,
			driverName:   "sqlite",
			migrations:   "sqlite",
			singleWriter: true,
			pragmas: []string{
				"foreign_keys(1)",
				"busy_timeout(5000)",
			},
		}, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

func (d Dialect) Name() string {
	return d.name
}

// DSN adds the dialect's connection pragmas to base. The driver applies them
// to every connection it opens, including ones the pool replaces.
func (d Dialect) DSN(base string) string {
	if len(d.pragmas) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	for _, pragma := range d.pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(pragma)
		sep = "&"
	}
	return b.String()
}

// Rebind rewrites '?' placeholders into the driver's native style.
func (d Dialect) Rebind(query string) string {
	if !d.dollarParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// UniqueViolation reports whether err is a unique constraint failure and
// returns the constraint name (PostgreSQL) or message (SQLite) to tell
// which column collided.
func (d Dialect) UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return sqliteErr.Error(), true
		}
	}
	return "", false
}

// IsRetryable reports transient contention failures: serialization
// failures and deadlocks on PostgreSQL, busy or locked on SQLite.
func (d Dialect) IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		primary := sqliteErr.Code() & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	return false
}
