package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlayerBalance is the durable per-player, per-currency balance row. It is
// mutated exclusively by the transaction processor while holding the row lock,
// and never drops below zero.
type PlayerBalance struct {
	PlayerID  string          `json:"player_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CanDebit reports whether the balance covers the given amount.
func (b *PlayerBalance) CanDebit(amount decimal.Decimal) bool {
	return b.Balance.GreaterThanOrEqual(amount)
}
