package repository

import (
	"context"
	"log/slog"
	"time"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type transactionRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, dialect Dialect, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

// CreateTransaction inserts the record with the timestamp already set on tx.
func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := r.dialect.Rebind(`
		INSERT INTO transactions (account_id, amount, transaction_type, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING transaction_id
	`)

	if tx.Timestamp.IsZero() {
		tx.Timestamp = Now()
	}

	err := r.db.QueryRowContext(ctx,
		query,
		tx.AccountID,
		domain.FormatMoney(tx.Amount),
		string(tx.Type),
		tx.Timestamp,
	).Scan(&tx.ID)

	if err != nil {
		r.logger.Error("Failed to create transaction",
			"account_id", tx.AccountID,
			"amount", domain.FormatMoney(tx.Amount),
			"transaction_type", tx.Type,
			"error", err)
		return errors.Internal("failed to create transaction", err)
	}

	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID, "account_id", tx.AccountID)
	return nil
}

// ListTransactionsByAccount returns the history in insertion order.
func (r *transactionRepository) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	query := r.dialect.Rebind(`
		SELECT transaction_id, account_id, amount, transaction_type, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY transaction_id ASC
	`)

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, errors.Internal("failed to list transactions", err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		var tx domain.Transaction
		var txType string
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Amount, &txType, &tx.Timestamp); err != nil {
			r.logger.Error("Failed to scan transaction", "account_id", accountID, "error", err)
			return nil, errors.Internal("failed to scan transaction", err)
		}
		tx.Type = domain.TransactionType(txType)
		tx.Timestamp = tx.Timestamp.UTC()
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to list transactions", err)
	}

	return transactions, nil
}

// LatestTransactionTime returns the timestamp of the newest record, if any.
// Timestamps never go backwards within an account, so the newest id holds it.
func (r *transactionRepository) LatestTransactionTime(ctx context.Context, accountID int64) (time.Time, bool, error) {
	query := r.dialect.Rebind(`
		SELECT created_at FROM transactions
		WHERE account_id = ?
		ORDER BY transaction_id DESC
		LIMIT 1
	`)

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to read latest transaction time", "account_id", accountID, "error", err)
		return time.Time{}, false, errors.Internal("failed to read latest transaction time", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return time.Time{}, false, errors.Internal("failed to read latest transaction time", err)
		}
		return time.Time{}, false, nil
	}

	var latest time.Time
	if err := rows.Scan(&latest); err != nil {
		return time.Time{}, false, errors.Internal("failed to read latest transaction time", err)
	}
	return latest.UTC(), true, nil
}

func (r *transactionRepository) DeleteTransactionsByAccount(ctx context.Context, accountID int64) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM transactions WHERE account_id = ?`), accountID)
	if err != nil {
		r.logger.Error("Failed to delete transactions", "account_id", accountID, "error", err)
		return errors.Internal("failed to delete transactions", err)
	}

	deleted, _ := result.RowsAffected()
	r.logger.Info("Transactions deleted", "account_id", accountID, "count", deleted)
	return nil
}
