package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID           int64           `json:"account_id"`
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Transactions []Transaction   `json:"transactions"`
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id int64) (*Account, error)
	GetAccountForUpdate(ctx context.Context, id int64) (*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
	UpdateAccountBalance(ctx context.Context, id int64, newBalance decimal.Decimal) error
	DeleteAccount(ctx context.Context, id int64) error
}
