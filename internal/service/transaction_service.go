package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/repository"
)

// TransactionInput carries the raw client fields.
type TransactionInput struct {
	AccountID string
	Amount    string
	Type      string
}

type TransactionService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewTransactionService(store *repository.Store, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		logger: logger,
	}
}

// CreateTransaction appends a deposit or withdrawal and moves the balance in
// the same database transaction, holding the account row lock throughout.
// It returns the record and the resulting balance.
func (s *TransactionService) CreateTransaction(ctx context.Context, requester *domain.User, in TransactionInput) (*domain.Transaction, decimal.Decimal, error) {
	if err := Authorize(requester, domain.RoleRoot); err != nil {
		return nil, decimal.Zero, err
	}

	accountID, amount, txType, err := s.validate(in)
	if err != nil {
		transactionsRejected.WithLabelValues(errorCode(err)).Inc()
		return nil, decimal.Zero, err
	}

	s.logger.Info("Processing transaction",
		"account_id", accountID,
		"amount", domain.FormatMoney(amount),
		"transaction_type", txType,
		"requested_by", requester.ID)

	var (
		transaction *domain.Transaction
		newBalance  decimal.Decimal
	)
	err = s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		account, err := tx.Account().GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		newBalance = account.Balance.Add(txType.Signed(amount))
		if newBalance.IsNegative() {
			return errors.ErrInsufficientFunds.WithDetails("balance " + domain.FormatMoney(account.Balance))
		}
		if newBalance.GreaterThanOrEqual(domain.MaxMoney) {
			return errors.NewAppError(errors.InvalidAmount, "resulting balance exceeds the maximum")
		}

		timestamp := repository.Now()
		latest, found, err := tx.Transaction().LatestTransactionTime(ctx, accountID)
		if err != nil {
			return err
		}
		if found && timestamp.Before(latest) {
			// The clock went backwards; keep the history ordered.
			timestamp = latest
		}

		transaction = &domain.Transaction{
			AccountID: accountID,
			Amount:    amount,
			Type:      txType,
			Timestamp: timestamp,
		}
		if err := tx.Transaction().CreateTransaction(ctx, transaction); err != nil {
			return err
		}
		if err := tx.Account().UpdateAccountBalance(ctx, accountID, newBalance); err != nil {
			return err
		}

		reason := domain.ReasonDeposit
		if txType == domain.Withdrawal {
			reason = domain.ReasonWithdrawal
		}
		return tx.BalanceLog().CreateBalanceLog(ctx, &domain.BalanceLog{
			AccountID:  accountID,
			OldBalance: account.Balance,
			NewBalance: newBalance,
			Reason:     reason,
			CreatedAt:  timestamp,
		})
	})
	if err != nil {
		transactionsRejected.WithLabelValues(errorCode(err)).Inc()
		s.logger.Warn("Transaction failed", "account_id", accountID, "error", err)
		return nil, decimal.Zero, err
	}

	transactionsRecorded.WithLabelValues(string(txType)).Inc()
	s.logger.Info("Transaction recorded",
		"transaction_id", transaction.ID,
		"account_id", accountID,
		"new_balance", domain.FormatMoney(newBalance))
	return transaction, newBalance, nil
}

// History lists the transactions of an account in insertion order.
func (s *TransactionService) History(ctx context.Context, requester *domain.User, accountID string) (int64, []domain.Transaction, error) {
	if err := Authorize(requester, domain.RoleStandard); err != nil {
		return 0, nil, err
	}
	id, err := parseAccountID(accountID)
	if err != nil {
		return 0, nil, err
	}

	var transactions []domain.Transaction
	err = s.store.ReadSnapshot(ctx, func(tx *repository.Store) error {
		if _, err := tx.Account().GetAccount(ctx, id); err != nil {
			return err
		}
		var err error
		transactions, err = tx.Transaction().ListTransactionsByAccount(ctx, id)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return id, transactions, nil
}

func (s *TransactionService) validate(in TransactionInput) (int64, decimal.Decimal, domain.TransactionType, error) {
	accountID, err := parseAccountID(in.AccountID)
	if err != nil {
		return 0, decimal.Zero, "", err
	}

	amount, ok := domain.ParseMoney(in.Amount)
	if !ok || !amount.IsPositive() {
		return 0, decimal.Zero, "", errors.ErrInvalidAmount
	}

	txType, ok := domain.ParseTransactionType(strings.TrimSpace(in.Type))
	if !ok {
		return 0, decimal.Zero, "", errors.ErrInvalidTransactionType
	}

	return accountID, amount, txType, nil
}

func errorCode(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return string(appErr.Code)
	}
	return string(errors.InternalError)
}
