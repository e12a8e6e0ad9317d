package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/repository"
)

const (
	maxNameLength  = 100
	maxEmailLength = 100
)

// AccountInput carries the raw client fields. Empty strings mean the field
// was not provided.
type AccountInput struct {
	CustomerName string
	Email        string
	Balance      string
}

type AccountService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewAccountService(store *repository.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

// CreateAccount opens an account for any authenticated user. A missing
// balance opens it at zero.
func (s *AccountService) CreateAccount(ctx context.Context, requester *domain.User, in AccountInput) (*domain.Account, error) {
	if err := Authorize(requester, domain.RoleStandard); err != nil {
		return nil, err
	}

	name, err := validateName(in.CustomerName)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	balance := decimal.Zero
	if strings.TrimSpace(in.Balance) != "" {
		if balance, err = parseBalance(in.Balance); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Creating account", "requested_by", requester.ID, "email", email, "initial_balance", domain.FormatMoney(balance))

	var account *domain.Account
	err = s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		account = &domain.Account{
			CustomerName: name,
			Email:        email,
			Balance:      balance,
		}
		if err := tx.Account().CreateAccount(ctx, account); err != nil {
			return err
		}
		return tx.BalanceLog().CreateBalanceLog(ctx, &domain.BalanceLog{
			AccountID:  account.ID,
			OldBalance: decimal.Zero,
			NewBalance: balance,
			Reason:     domain.ReasonOpening,
			CreatedAt:  account.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	account.Transactions = []domain.Transaction{}
	accountsCreated.Inc()
	s.logger.Info("Account created successfully", "account_id", account.ID)
	return account, nil
}

// GetAccount returns the account with its full history, read from one snapshot.
func (s *AccountService) GetAccount(ctx context.Context, requester *domain.User, accountID string) (*domain.Account, error) {
	if err := Authorize(requester, domain.RoleStandard); err != nil {
		return nil, err
	}
	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, err
	}

	var account *domain.Account
	err = s.store.ReadSnapshot(ctx, func(tx *repository.Store) error {
		var err error
		if account, err = tx.Account().GetAccount(ctx, id); err != nil {
			return err
		}
		account.Transactions, err = tx.Transaction().ListTransactionsByAccount(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateAccount is the administrative override. Fields left empty keep their
// value. A new balance bypasses the transaction history and is recorded in
// the balance log instead.
func (s *AccountService) UpdateAccount(ctx context.Context, requester *domain.User, accountID string, in AccountInput) (*domain.Account, error) {
	if err := Authorize(requester, domain.RoleRoot); err != nil {
		return nil, err
	}
	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, err
	}

	var name, email string
	var balance *decimal.Decimal
	if strings.TrimSpace(in.CustomerName) != "" {
		if name, err = validateName(in.CustomerName); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(in.Email) != "" {
		if email, err = validateEmail(in.Email); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(in.Balance) != "" {
		b, err := parseBalance(in.Balance)
		if err != nil {
			return nil, err
		}
		balance = &b
	}

	var account *domain.Account
	err = s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Account().GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		oldBalance := current.Balance

		if name != "" {
			current.CustomerName = name
		}
		if email != "" {
			current.Email = email
		}
		if balance != nil {
			current.Balance = *balance
		}

		if err := tx.Account().UpdateAccount(ctx, current); err != nil {
			return err
		}
		if !current.Balance.Equal(oldBalance) {
			err := tx.BalanceLog().CreateBalanceLog(ctx, &domain.BalanceLog{
				AccountID:  id,
				OldBalance: oldBalance,
				NewBalance: current.Balance,
				Reason:     domain.ReasonOverride,
				CreatedAt:  current.UpdatedAt,
			})
			if err != nil {
				return err
			}
		}

		current.Transactions, err = tx.Transaction().ListTransactionsByAccount(ctx, id)
		account = current
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account updated", "account_id", id, "updated_by", requester.ID)
	return account, nil
}

// DeleteAccount removes the account with its transactions and balance logs.
func (s *AccountService) DeleteAccount(ctx context.Context, requester *domain.User, accountID string) error {
	if err := Authorize(requester, domain.RoleRoot); err != nil {
		return err
	}
	id, err := parseAccountID(accountID)
	if err != nil {
		return err
	}

	err = s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Account().GetAccountForUpdate(ctx, id); err != nil {
			return err
		}
		if err := tx.BalanceLog().DeleteBalanceLogsByAccount(ctx, id); err != nil {
			return err
		}
		if err := tx.Transaction().DeleteTransactionsByAccount(ctx, id); err != nil {
			return err
		}
		return tx.Account().DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Account deleted", "account_id", id, "deleted_by", requester.ID)
	return nil
}

// BalanceLogs returns the balance audit trail of an account.
func (s *AccountService) BalanceLogs(ctx context.Context, requester *domain.User, accountID string) (int64, []domain.BalanceLog, error) {
	if err := Authorize(requester, domain.RoleRoot); err != nil {
		return 0, nil, err
	}
	id, err := parseAccountID(accountID)
	if err != nil {
		return 0, nil, err
	}

	var logs []domain.BalanceLog
	err = s.store.ReadSnapshot(ctx, func(tx *repository.Store) error {
		if _, err := tx.Account().GetAccount(ctx, id); err != nil {
			return err
		}
		var err error
		logs, err = tx.BalanceLog().ListBalanceLogs(ctx, id)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return id, logs, nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.NewAppError(errors.InvalidInput, "customer_name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", errors.NewAppError(errors.InvalidInput, "customer_name is too long")
	}
	return name, nil
}

// validateEmail accepts a bare address only, no display name.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", errors.NewAppError(errors.InvalidInput, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLength {
		return "", errors.NewAppError(errors.InvalidInput, "email is not a valid address")
	}
	return email, nil
}

func parseBalance(raw string) (decimal.Decimal, error) {
	balance, ok := domain.ParseMoney(raw)
	if !ok || balance.IsNegative() {
		return decimal.Zero, errors.NewAppError(errors.InvalidAmount,
			"balance must be a non-negative number with at most two decimal places")
	}
	return balance, nil
}
