package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for balances and amounts.
const MoneyScale = 2

// MaxMoney bounds any single balance or amount; it fits NUMERIC(15,2).
var MaxMoney = decimal.New(1, 13)

// maxMoneyInput caps both the text length and the exponent magnitude of a
// money value. Rescaling cost grows with the exponent, so anything outside
// it is rejected before Round or Cmp touch the coefficient.
const maxMoneyInput = 32

// ParseMoney parses a decimal string with at most MoneyScale fractional digits.
// Sign and range checks are left to the caller.
func ParseMoney(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxMoneyInput {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if exp := d.Exponent(); exp > maxMoneyInput || exp < -maxMoneyInput {
		return decimal.Zero, false
	}
	// Integer digits are known without rescaling.
	if !d.IsZero() && d.NumDigits()+int(d.Exponent()) > 13 {
		return decimal.Zero, false
	}
	if !d.Equal(d.Round(MoneyScale)) {
		return decimal.Zero, false
	}
	if d.Abs().GreaterThanOrEqual(MaxMoney) {
		return decimal.Zero, false
	}
	return d.Round(MoneyScale), true
}

// FormatMoney renders d with exactly MoneyScale fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
