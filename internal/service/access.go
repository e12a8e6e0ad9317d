package service

import (
	"strconv"
	"strings"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// Authorize is the role gate every operation goes through. Handlers call it
// before decoding a body so a missing role wins over a malformed request.
func Authorize(user *domain.User, required domain.Role) error {
	if user == nil {
		return errors.ErrUnauthorized
	}
	if !user.HasRole(required) {
		return errors.ErrForbidden
	}
	return nil
}

func parseAccountID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrInvalidAccountID
	}
	return id, nil
}
