package repository

import (
	"context"
	"log/slog"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type balanceLogRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  *slog.Logger
}

func NewBalanceLogRepository(db SQLExecutor, dialect Dialect, logger *slog.Logger) domain.BalanceLogRepository {
	return &balanceLogRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

func (r *balanceLogRepository) CreateBalanceLog(ctx context.Context, log *domain.BalanceLog) error {
	query := r.dialect.Rebind(`
		INSERT INTO balance_logs (account_id, old_balance, new_balance, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING log_id
	`)

	if log.CreatedAt.IsZero() {
		log.CreatedAt = Now()
	}

	err := r.db.QueryRowContext(ctx, query,
		log.AccountID,
		domain.FormatMoney(log.OldBalance),
		domain.FormatMoney(log.NewBalance),
		string(log.Reason),
		log.CreatedAt,
	).Scan(&log.ID)
	if err != nil {
		r.logger.Error("Failed to create balance log", "account_id", log.AccountID, "reason", log.Reason, "error", err)
		return errors.Internal("failed to create balance log", err)
	}
	return nil
}

func (r *balanceLogRepository) ListBalanceLogs(ctx context.Context, accountID int64) ([]domain.BalanceLog, error) {
	query := r.dialect.Rebind(`
		SELECT log_id, account_id, old_balance, new_balance, reason, created_at
		FROM balance_logs
		WHERE account_id = ?
		ORDER BY log_id ASC
	`)

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list balance logs", "account_id", accountID, "error", err)
		return nil, errors.Internal("failed to list balance logs", err)
	}
	defer rows.Close()

	logs := []domain.BalanceLog{}
	for rows.Next() {
		var entry domain.BalanceLog
		var reason string
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.OldBalance, &entry.NewBalance, &reason, &entry.CreatedAt); err != nil {
			return nil, errors.Internal("failed to scan balance log", err)
		}
		entry.Reason = domain.BalanceChangeReason(reason)
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to list balance logs", err)
	}
	return logs, nil
}

func (r *balanceLogRepository) DeleteBalanceLogsByAccount(ctx context.Context, accountID int64) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM balance_logs WHERE account_id = ?`), accountID); err != nil {
		r.logger.Error("Failed to delete balance logs", "account_id", accountID, "error", err)
		return errors.Internal("failed to delete balance logs", err)
	}
	return nil
}
