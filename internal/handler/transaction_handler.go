package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
	logger             *slog.Logger
}

func NewTransactionHandler(transactionService *service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

type CreateTransactionRequest struct {
	AccountID       numericString `json:"account_id"`
	Amount          numericString `json:"amount"`
	TransactionType string        `json:"transaction_type"`
}

type CreateTransactionResponse struct {
	Message     string              `json:"message"`
	Transaction TransactionResponse `json:"transaction"`
	Balance     json.Number         `json:"balance"`
}

type HistoryResponse struct {
	AccountID    int64                 `json:"account_id"`
	Transactions []TransactionResponse `json:"transactions"`
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := service.Authorize(user, domain.RoleRoot); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req CreateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	transaction, balance, err := h.transactionService.CreateTransaction(r.Context(), user, service.TransactionInput{
		AccountID: string(req.AccountID),
		Amount:    string(req.Amount),
		Type:      req.TransactionType,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateTransactionResponse{
		Message:     "Transaction recorded successfully",
		Transaction: newTransactionResponse(*transaction),
		Balance:     money(balance),
	})
}

func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, transactions, err := h.transactionService.History(r.Context(), UserFromContext(r.Context()), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		AccountID:    accountID,
		Transactions: newTransactionResponses(transactions),
	})
}
