package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionType_Valid(t *testing.T) {
	tests := []struct {
		typ   TransactionType
		valid bool
	}{
		{TransactionTypeBet, true},
		{TransactionTypeWin, true},
		{TransactionTypeRefund, true},
		{TransactionTypeBalance, true},
		{TransactionTypeDeposit, true},
		{TransactionTypeWithdrawal, true},
		{TransactionType("SPIN"), false},
		{TransactionType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.typ.Valid())
		})
	}
}

func TestTransactionType_Direction(t *testing.T) {
	assert.True(t, TransactionTypeBet.Debits())
	assert.True(t, TransactionTypeWithdrawal.Debits())
	assert.True(t, TransactionTypeWin.Credits())
	assert.True(t, TransactionTypeRefund.Credits())
	assert.True(t, TransactionTypeDeposit.Credits())
	assert.False(t, TransactionTypeBalance.Debits())
	assert.False(t, TransactionTypeBalance.Credits())
}

func TestTransaction_SignedDelta(t *testing.T) {
	amount := decimal.RequireFromString("100.50")

	tests := []struct {
		name   string
		txn    Transaction
		expect string
	}{
		{
			name:   "completed bet debits",
			txn:    Transaction{Type: TransactionTypeBet, Amount: amount, Status: TransactionStatusCompleted},
			expect: "-100.5",
		},
		{
			name:   "completed win credits",
			txn:    Transaction{Type: TransactionTypeWin, Amount: amount, Status: TransactionStatusCompleted},
			expect: "100.5",
		},
		{
			name:   "balance query is neutral",
			txn:    Transaction{Type: TransactionTypeBalance, Amount: decimal.Zero, Status: TransactionStatusCompleted},
			expect: "0",
		},
		{
			name:   "failed bet has no effect",
			txn:    Transaction{Type: TransactionTypeBet, Amount: amount, Status: TransactionStatusFailed},
			expect: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.txn.SignedDelta().String())
		})
	}
}

func TestTransaction_Conserves(t *testing.T) {
	txn := Transaction{
		Type:          TransactionTypeBet,
		Amount:        decimal.RequireFromString("100"),
		BalanceBefore: decimal.RequireFromString("1000"),
		BalanceAfter:  decimal.RequireFromString("900"),
		Status:        TransactionStatusCompleted,
	}
	assert.True(t, txn.Conserves())

	txn.BalanceAfter = decimal.RequireFromString("899")
	assert.False(t, txn.Conserves())

	// Failed rows must carry balance_after == balance_before.
	failed := Transaction{
		Type:          TransactionTypeBet,
		Amount:        decimal.RequireFromString("5000"),
		BalanceBefore: decimal.RequireFromString("1000"),
		BalanceAfter:  decimal.RequireFromString("1000"),
		Status:        TransactionStatusFailed,
	}
	assert.True(t, failed.Conserves())
}

func TestPlayerBalance_CanDebit(t *testing.T) {
	b := PlayerBalance{Balance: decimal.RequireFromString("100.00")}

	assert.True(t, b.CanDebit(decimal.RequireFromString("100.00")))
	assert.True(t, b.CanDebit(decimal.RequireFromString("99.99")))
	assert.False(t, b.CanDebit(decimal.RequireFromString("100.01")))
}

func TestTransactionResult_OK(t *testing.T) {
	ok := TransactionResult{Status: TransactionStatusCompleted}
	assert.True(t, ok.OK())

	failed := TransactionResult{Status: TransactionStatusFailed, ErrorCode: "INSUFFICIENT_FUNDS"}
	assert.False(t, failed.OK())
}
