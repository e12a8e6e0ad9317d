package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
)

// ParseTransactionType accepts the wire names only.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(s) {
	case Deposit, Withdrawal:
		return TransactionType(s), true
	}
	return "", false
}

// Signed returns the amount as it applies to the balance.
func (t TransactionType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == Withdrawal {
		return amount.Neg()
	}
	return amount
}

type Transaction struct {
	ID        int64           `json:"transaction_id"`
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"transaction_type"`
	Timestamp time.Time       `json:"timestamp"`
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	ListTransactionsByAccount(ctx context.Context, accountID int64) ([]Transaction, error)
	LatestTransactionTime(ctx context.Context, accountID int64) (time.Time, bool, error)
	DeleteTransactionsByAccount(ctx context.Context, accountID int64) error
}
