package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

const defaultMaxRetries = 5

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	db         *sql.DB
	executor   SQLExecutor
	dialect    Dialect
	logger     *slog.Logger
	maxRetries int
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB, dialect Dialect, logger *slog.Logger) *Store {
	return &Store{
		db:         db,
		executor:   db,
		dialect:    dialect,
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}
}

// WithMaxRetries sets how many times a transaction that hit contention is
// retried before ErrConcurrentUpdate is returned.
func (s *Store) WithMaxRetries(n int) *Store {
	s.maxRetries = n
	return s
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.dialect, s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.dialect, s.logger)
}

func (s *Store) User() domain.UserRepository {
	return NewUserRepository(s.executor, s.dialect, s.logger)
}

func (s *Store) Session() domain.SessionRepository {
	return NewSessionRepository(s.executor, s.dialect, s.logger)
}

func (s *Store) BalanceLog() domain.BalanceLogRepository {
	return NewBalanceLogRepository(s.executor, s.dialect, s.logger)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.ErrCannotBeginTransaction
	}
	return s.db.PingContext(ctx)
}

// WithTransaction executes fn within a database transaction. Contention
// failures roll back and retry fn with exponential backoff; once the retries
// are spent the caller gets ErrConcurrentUpdate.
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := s.runInTx(ctx, nil, fn)
		if err == nil {
			return nil
		}
		if s.dialect.IsRetryable(err) {
			storeTxRetries.WithLabelValues(s.dialect.Name()).Inc()
			s.logger.Warn("Retrying transaction after contention", "attempt", attempt, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newRetryBackOff(), uint64(s.maxRetries)),
		ctx,
	)

	err := backoff.Retry(operation, policy)
	if err != nil && s.dialect.IsRetryable(err) {
		s.logger.Error("Transaction retries exhausted", "attempts", attempt, "error", err)
		return errors.ErrConcurrentUpdate.WithCause(err)
	}
	return err
}

// ReadSnapshot runs fn in a read-only transaction so that every read inside
// it observes the same committed state.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(*Store) error) error {
	return s.runInTx(ctx, s.dialect.readOptions, fn)
}

func (s *Store) runInTx(ctx context.Context, opts *sql.TxOptions, fn func(*Store) error) error {
	// Only the root store owns a *sql.DB; nested transactions are not supported.
	if s.db == nil {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return errors.ErrCannotBeginTransaction.WithCause(err)
	}

	txStore := &Store{
		executor: tx,
		dialect:  s.dialect,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func newRetryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}
