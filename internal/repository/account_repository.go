package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type accountRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  *slog.Logger
}

func NewAccountRepository(db SQLExecutor, dialect Dialect, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := r.dialect.Rebind(`
		INSERT INTO accounts (customer_name, email, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING account_id
	`)

	now := Now()
	err := r.db.QueryRowContext(ctx,
		query,
		account.CustomerName,
		account.Email,
		domain.FormatMoney(account.Balance),
		now,
		now,
	).Scan(&account.ID)

	if err != nil {
		if constraint, ok := r.dialect.UniqueViolation(err); ok && strings.Contains(constraint, "email") {
			r.logger.Warn("Duplicate account email", "email", account.Email)
			return errors.ErrDuplicateEmail
		}
		r.logger.Error("Failed to create account", "email", account.Email, "error", err)
		return errors.Internal("failed to create account", err)
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT account_id, customer_name, email, balance, created_at, updated_at
		FROM accounts WHERE account_id = ?
	`

	return r.scanAccount(ctx, query, id)
}

// GetAccountForUpdate reads the account and, where the database supports it,
// holds its row lock until the surrounding transaction ends.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT account_id, customer_name, email, balance, created_at, updated_at
		FROM accounts WHERE account_id = ?` + r.dialect.forUpdate

	return r.scanAccount(ctx, query, id)
}

func (r *accountRepository) scanAccount(ctx context.Context, query string, id int64) (*domain.Account, error) {
	var account domain.Account

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id).Scan(
		&account.ID,
		&account.CustomerName,
		&account.Email,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_id", id)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.Internal("failed to get account", err)
	}

	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return &account, nil
}

func (r *accountRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := r.dialect.Rebind(`
		UPDATE accounts
		SET customer_name = ?, email = ?, balance = ?, updated_at = ?
		WHERE account_id = ?
	`)

	now := Now()
	result, err := r.db.ExecContext(ctx,
		query,
		account.CustomerName,
		account.Email,
		domain.FormatMoney(account.Balance),
		now,
		account.ID,
	)
	if err != nil {
		if constraint, ok := r.dialect.UniqueViolation(err); ok && strings.Contains(constraint, "email") {
			r.logger.Warn("Duplicate account email on update", "account_id", account.ID, "email", account.Email)
			return errors.ErrDuplicateEmail
		}
		r.logger.Error("Failed to update account", "account_id", account.ID, "error", err)
		return errors.Internal("failed to update account", err)
	}

	if err := r.expectOneRow(result, account.ID); err != nil {
		return err
	}

	account.UpdatedAt = now
	r.logger.Info("Account updated", "account_id", account.ID)
	return nil
}

func (r *accountRepository) UpdateAccountBalance(ctx context.Context, id int64, newBalance decimal.Decimal) error {
	query := r.dialect.Rebind(`
		UPDATE accounts
		SET balance = ?, updated_at = ?
		WHERE account_id = ?
	`)

	result, err := r.db.ExecContext(ctx, query, domain.FormatMoney(newBalance), Now(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return errors.Internal("failed to update account balance", err)
	}

	if err := r.expectOneRow(result, id); err != nil {
		return err
	}

	r.logger.Info("Account balance updated", "account_id", id, "new_balance", domain.FormatMoney(newBalance))
	return nil
}

func (r *accountRepository) DeleteAccount(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM accounts WHERE account_id = ?`), id)
	if err != nil {
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return errors.Internal("failed to delete account", err)
	}

	if err := r.expectOneRow(result, id); err != nil {
		return err
	}

	r.logger.Info("Account deleted", "account_id", id)
	return nil
}

func (r *accountRepository) expectOneRow(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to change", "account_id", id)
		return errors.ErrAccountNotFound
	}
	return nil
}
