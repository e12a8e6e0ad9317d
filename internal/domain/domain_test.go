package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"100", "100.00", true},
		{" 25.5 ", "25.50", true},
		{"0.01", "0.01", true},
		{"-3.10", "-3.10", true},
		{"1.230", "1.23", true},
		{"1.234", "", false},
		{"", "", false},
		{"abc", "", false},
		{"10000000000000", "", false},
		{"9e12", "9000000000000.00", true},
		{"1.5e1", "15.00", true},
		{"1e20000000", "", false},
		{"-1e20000000", "", false},
		{"1e-20000000", "", false},
		{"0.000000000000000000000000000001", "", false},
		{"1" + strings.Repeat("0", 40), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMoney(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, FormatMoney(got))
			}
		})
	}
}

func TestTransactionTypeSigned(t *testing.T) {
	amount := decimal.RequireFromString("25.00")

	assert.True(t, Deposit.Signed(amount).Equal(amount))
	assert.True(t, Withdrawal.Signed(amount).Equal(amount.Neg()))

	_, ok := ParseTransactionType("transfer")
	assert.False(t, ok)
	typ, ok := ParseTransactionType("withdrawal")
	assert.True(t, ok)
	assert.Equal(t, Withdrawal, typ)
}

func TestHasRole(t *testing.T) {
	root := &User{Role: RoleRoot}
	standard := &User{Role: RoleStandard}

	assert.True(t, root.HasRole(RoleRoot))
	assert.True(t, root.HasRole(RoleStandard))
	assert.True(t, standard.HasRole(RoleStandard))
	assert.False(t, standard.HasRole(RoleRoot))

	var nobody *User
	assert.False(t, nobody.HasRole(RoleStandard))
}
