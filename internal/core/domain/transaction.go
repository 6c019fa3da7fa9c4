package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the canonical vocabulary for money movement. Provider
// adapters translate each provider's own type names into these values.
type TransactionType string

const (
	TransactionTypeBet     TransactionType = "BET"
	TransactionTypeWin     TransactionType = "WIN"
	TransactionTypeRefund  TransactionType = "REFUND"
	TransactionTypeBalance TransactionType = "BALANCE"

	// Internal flows (deposits/withdrawals) go through the same ledger
	// primitive as game transactions so balances stay consistent.
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeBet, TransactionTypeWin, TransactionTypeRefund,
		TransactionTypeBalance, TransactionTypeDeposit, TransactionTypeWithdrawal:
		return true
	}
	return false
}

// Debits reports whether the type removes funds from the balance.
func (t TransactionType) Debits() bool {
	return t == TransactionTypeBet || t == TransactionTypeWithdrawal
}

// Credits reports whether the type adds funds to the balance.
func (t TransactionType) Credits() bool {
	return t == TransactionTypeWin || t == TransactionTypeRefund || t == TransactionTypeDeposit
}

// TransactionStatus is the terminal state of a processed transaction.
// Transactions are only ever written in a terminal state.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Valid reports whether s is a known transaction status.
func (s TransactionStatus) Valid() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction is an immutable ledger entry. Corrections are compensating
// transactions, never mutations.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	ExternalID    string            `json:"external_id"` // Provider-supplied idempotency key
	ProviderID    string            `json:"provider_id"`
	PlayerID      string            `json:"player_id"`
	GameID        string            `json:"game_id,omitempty"`
	RoundID       string            `json:"round_id,omitempty"`
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	BalanceBefore decimal.Decimal   `json:"balance_before"`
	BalanceAfter  decimal.Decimal   `json:"balance_after"`
	Status        TransactionStatus `json:"status"`
	ErrorCode     *string           `json:"error_code,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// SignedDelta returns the balance effect of the transaction: -amount for
// debits, +amount for credits, zero for balance queries and failed rows.
func (t *Transaction) SignedDelta() decimal.Decimal {
	if t.Status != TransactionStatusCompleted {
		return decimal.Zero
	}
	switch {
	case t.Type.Debits():
		return t.Amount.Neg()
	case t.Type.Credits():
		return t.Amount
	}
	return decimal.Zero
}

// Conserves verifies the ledger invariant balance_after == balance_before + delta.
func (t *Transaction) Conserves() bool {
	return t.BalanceAfter.Equal(t.BalanceBefore.Add(t.SignedDelta()))
}
