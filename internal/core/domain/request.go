package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a provider omits the currency field.
const DefaultCurrency = "USD"

// TransactionRequest is the canonical callback request produced by provider
// adapters. The transaction processor only ever sees this shape.
type TransactionRequest struct {
	ProviderID string          `json:"provider_id"`
	ExternalID string          `json:"external_id"`
	PlayerID   string          `json:"player_id"`
	GameID     string          `json:"game_id,omitempty"`
	RoundID    string          `json:"round_id,omitempty"`
	Type       TransactionType `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// TransactionResult is the canonical outcome returned by the transaction
// processor. Business failures are encoded here, never raised as Go errors,
// so the callback endpoint can always produce a provider-shaped response.
type TransactionResult struct {
	Status           TransactionStatus `json:"status"`
	ErrorCode        string            `json:"error_code,omitempty"` // Canonical code, empty on success
	Balance          decimal.Decimal   `json:"balance"`
	Currency         string            `json:"currency"`
	PlatformTxID     uuid.UUID         `json:"platform_tx_id,omitempty"`
	AlreadyProcessed bool              `json:"already_processed,omitempty"`
}

// OK reports whether the result carries a successful outcome.
func (r *TransactionResult) OK() bool {
	return r.Status == TransactionStatusCompleted && r.ErrorCode == ""
}
