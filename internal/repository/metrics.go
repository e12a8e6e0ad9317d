package repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storeTxRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_store_tx_retries_total",
	Help: "Transactions retried after lock contention, by database driver",
}, []string{"driver"})
