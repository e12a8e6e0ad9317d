package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BalanceChangeReason string

const (
	ReasonOpening    BalanceChangeReason = "opening"
	ReasonDeposit    BalanceChangeReason = "deposit"
	ReasonWithdrawal BalanceChangeReason = "withdrawal"
	ReasonOverride   BalanceChangeReason = "override"
)

// BalanceLog records one balance change of an account.
type BalanceLog struct {
	ID         int64               `json:"log_id"`
	AccountID  int64               `json:"account_id"`
	OldBalance decimal.Decimal     `json:"old_balance"`
	NewBalance decimal.Decimal     `json:"new_balance"`
	Reason     BalanceChangeReason `json:"reason"`
	CreatedAt  time.Time           `json:"created_at"`
}

type BalanceLogRepository interface {
	CreateBalanceLog(ctx context.Context, log *BalanceLog) error
	ListBalanceLogs(ctx context.Context, accountID int64) ([]BalanceLog, error)
	DeleteBalanceLogsByAccount(ctx context.Context, accountID int64) error
}
