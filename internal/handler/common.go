package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// numericString accepts a JSON number or a string, since the browser client
// posts form values as strings. null and absent both decode to "".
type numericString string

func (n *numericString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numericString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = numericString(num.String())
	return nil
}

// money renders d as a JSON number with exactly two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(domain.FormatMoney(d))
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError answers with the AppError's status and code. Anything else is
// logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		logger.Error("Unexpected error", "error", err)
		appErr = errors.NewAppError(errors.InternalError, "an unexpected error occurred")
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError && ok {
		logger.Error("Request failed", "code", appErr.Code, "message", appErr.Message, "details", appErr.Details)
	}

	writeJSON(w, status, ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Code),
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	return nil
}

// NotFound answers unknown routes with the JSON error shape.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error: "route not found",
		Code:  string(errors.RouteNotFound),
	})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error: "method not allowed",
		Code:  string(errors.MethodNotAllowed),
	})
}

type TransactionResponse struct {
	TransactionID   int64       `json:"transaction_id"`
	AccountID       int64       `json:"account_id"`
	Amount          json.Number `json:"amount"`
	TransactionType string      `json:"transaction_type"`
	Timestamp       time.Time   `json:"timestamp"`
}

func newTransactionResponse(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:   tx.ID,
		AccountID:       tx.AccountID,
		Amount:          money(tx.Amount),
		TransactionType: string(tx.Type),
		Timestamp:       tx.Timestamp,
	}
}

func newTransactionResponses(txs []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionResponse(tx))
	}
	return out
}
