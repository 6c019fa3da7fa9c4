package ports

import (
	"context"

	"seamless-wallet-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

// WalletService is the transaction processor: the single place where money moves.
type WalletService interface {
	// ProcessCallback applies a canonical provider callback. All outcomes,
	// including business and infrastructure failures, come back as a typed
	// result so the callback endpoint can always answer in the provider's
	// envelope.
	ProcessCallback(ctx context.Context, req *domain.TransactionRequest) *domain.TransactionResult
	// GetBalance is the read-only balance lookup used by the platform API and
	// the game-launch flow.
	GetBalance(ctx context.Context, playerID, currency string) (*domain.PlayerBalance, error)
	// Adjust applies a deposit or withdrawal through the same locked ledger
	// path as game transactions.
	Adjust(ctx context.Context, req AdjustmentRequest) (*domain.Transaction, error)
}

// AdjustmentRequest is an internal deposit/withdrawal request.
type AdjustmentRequest struct {
	PlayerID  string
	Currency  string
	Amount    decimal.Decimal
	Type      domain.TransactionType // DEPOSIT or WITHDRAWAL
	Reference string                 // External reference; generated when empty
}

// ReportingService exposes the read-only transaction query interface.
type ReportingService interface {
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}
