package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput           ErrorCode = "invalid_input"
	InvalidAmount          ErrorCode = "invalid_amount"
	InvalidAccountID       ErrorCode = "invalid_account_id"
	InvalidTransactionType ErrorCode = "invalid_transaction_type"
	InsufficientFunds      ErrorCode = "insufficient_funds"
	Unauthorized           ErrorCode = "unauthorized"
	InvalidCredentials     ErrorCode = "invalid_credentials"
	Forbidden              ErrorCode = "forbidden"
	AccountNotFound        ErrorCode = "account_not_found"
	UserNotFound           ErrorCode = "user_not_found"
	RouteNotFound          ErrorCode = "route_not_found"
	MethodNotAllowed       ErrorCode = "method_not_allowed"
	DuplicateUsername      ErrorCode = "duplicate_username"
	DuplicateEmail         ErrorCode = "duplicate_email"
	ConcurrentUpdate       ErrorCode = "concurrent_update"
	CannotBeginTransaction ErrorCode = "cannot_begin_transaction"
	InternalError          ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	cause error
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an AppError with the same code, so copies
// produced by WithDetails still match the predefined errors below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy carrying details for the logs. The receiver is
// left untouched so shared errors stay immutable.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy that wraps cause; its text goes to Details.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.cause = cause
	if cause != nil {
		cp.Details = cause.Error()
	}
	return &cp
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error code onto the response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount, InvalidAccountID, InvalidTransactionType, InsufficientFunds:
		return http.StatusBadRequest
	case Unauthorized, InvalidCredentials:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case AccountNotFound, UserNotFound, RouteNotFound:
		return http.StatusNotFound
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case DuplicateUsername, DuplicateEmail, ConcurrentUpdate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Internal wraps an unexpected failure. The cause only travels in Details.
func Internal(message string, cause error) *AppError {
	return NewAppError(InternalError, message).WithCause(cause)
}

// AsAppError extracts an *AppError from the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Predefined errors for common cases
var (
	ErrInvalidAccountID       = NewAppError(InvalidAccountID, "invalid account id")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be a positive number with at most two decimal places")
	ErrInvalidTransactionType = NewAppError(InvalidTransactionType, "transaction_type must be 'deposit' or 'withdrawal'")
	ErrInsufficientFunds      = NewAppError(InsufficientFunds, "insufficient funds")
	ErrUnauthorized           = NewAppError(Unauthorized, "missing or invalid access token")
	ErrInvalidCredentials     = NewAppError(InvalidCredentials, "invalid username or password")
	ErrForbidden              = NewAppError(Forbidden, "insufficient role for this operation")
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrUserNotFound           = NewAppError(UserNotFound, "user not found")
	ErrDuplicateUsername      = NewAppError(DuplicateUsername, "username already exists")
	ErrDuplicateEmail         = NewAppError(DuplicateEmail, "email already exists")
	ErrConcurrentUpdate       = NewAppError(ConcurrentUpdate, "account is busy, please retry")
	ErrCannotBeginTransaction = NewAppError(CannotBeginTransaction, "cannot begin database transaction")
)
