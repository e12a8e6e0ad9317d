package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(accountService *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// AccountRequest is shared by create and update; update ignores empty fields.
type AccountRequest struct {
	CustomerName string        `json:"customer_name"`
	Email        string        `json:"email"`
	Balance      numericString `json:"balance"`
}

type AccountResponse struct {
	AccountID    int64                 `json:"account_id"`
	CustomerName string                `json:"customer_name"`
	Email        string                `json:"email"`
	Balance      json.Number           `json:"balance"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Transactions []TransactionResponse `json:"transactions"`
}

type AccountEnvelope struct {
	Message string          `json:"message"`
	Account AccountResponse `json:"account"`
}

type BalanceLogResponse struct {
	LogID      int64       `json:"log_id"`
	OldBalance json.Number `json:"old_balance"`
	NewBalance json.Number `json:"new_balance"`
	Reason     string      `json:"reason"`
	CreatedAt  time.Time   `json:"created_at"`
}

type BalanceLogsResponse struct {
	AccountID   int64                `json:"account_id"`
	BalanceLogs []BalanceLogResponse `json:"balance_logs"`
}

func newAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:    account.ID,
		CustomerName: account.CustomerName,
		Email:        account.Email,
		Balance:      money(account.Balance),
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
		Transactions: newTransactionResponses(account.Transactions),
	}
}

func (req AccountRequest) input() service.AccountInput {
	return service.AccountInput{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Balance:      string(req.Balance),
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), UserFromContext(r.Context()), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, AccountEnvelope{
		Message: "Account created successfully",
		Account: newAccountResponse(account),
	})
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(r.Context(), UserFromContext(r.Context()), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := service.Authorize(user, domain.RoleRoot); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.accountService.UpdateAccount(r.Context(), user, mux.Vars(r)["account_id"], req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountEnvelope{
		Message: "Account updated successfully",
		Account: newAccountResponse(account),
	})
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.accountService.DeleteAccount(r.Context(), UserFromContext(r.Context()), mux.Vars(r)["account_id"]); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}

func (h *AccountHandler) BalanceLogs(w http.ResponseWriter, r *http.Request) {
	accountID, logs, err := h.accountService.BalanceLogs(r.Context(), UserFromContext(r.Context()), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response := BalanceLogsResponse{
		AccountID:   accountID,
		BalanceLogs: make([]BalanceLogResponse, 0, len(logs)),
	}
	for _, entry := range logs {
		response.BalanceLogs = append(response.BalanceLogs, BalanceLogResponse{
			LogID:      entry.ID,
			OldBalance: money(entry.OldBalance),
			NewBalance: money(entry.NewBalance),
			Reason:     string(entry.Reason),
			CreatedAt:  entry.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
