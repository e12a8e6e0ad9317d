package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accountsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_accounts_created_total",
		Help: "Accounts opened",
	})

	transactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transactions_total",
		Help: "Transactions recorded, by type",
	}, []string{"transaction_type"})

	transactionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transactions_rejected_total",
		Help: "Transactions refused by the ledger, by error code",
	}, []string{"code"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_login_attempts_total",
		Help: "Login attempts, by result",
	}, []string{"result"})
)
