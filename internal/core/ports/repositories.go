package ports

import (
	"context"
	"time"

	"seamless-wallet-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepository defines persistence for player balances.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic
// locking; all balance mutations happen under the row lock.
type BalanceRepository interface {
	Get(ctx context.Context, playerID, currency string) (*domain.PlayerBalance, error)
	// GetForUpdate locks the (player_id, currency) row. Returns nil, nil when
	// the row does not exist.
	GetForUpdate(ctx context.Context, tx pgx.Tx, playerID, currency string) (*domain.PlayerBalance, error)
	// Create inserts a balance row, ignoring the insert if the row already
	// exists (concurrent first-touch provisioning).
	Create(ctx context.Context, tx pgx.Tx, balance *domain.PlayerBalance) error
	UpdateBalance(ctx context.Context, tx pgx.Tx, playerID, currency string, balance decimal.Decimal) error
}

// TransactionRepository defines persistence for the append-only transaction log.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	// GetCompletedByExternalID is the durable idempotency lookup: at most one
	// completed transaction exists per (provider_id, external_id).
	GetCompletedByExternalID(ctx context.Context, providerID, externalID string) (*domain.Transaction, error)
	// GetBetByRound finds the completed bet a refund reverses.
	GetBetByRound(ctx context.Context, playerID, roundID string) (*domain.Transaction, error)
	// GetRefundByRound finds an existing completed refund for a round.
	GetRefundByRound(ctx context.Context, playerID, roundID string) (*domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for the transaction query API.
type TransactionListParams struct {
	PlayerID   string
	ProviderID string
	Status     *domain.TransactionStatus
	Type       *domain.TransactionType
	From       *int64 // Unix timestamp
	To         *int64 // Unix timestamp
	Page       int
	PageSize   int
}

// ResultCache is the Redis-layer idempotency check (fast path). The durable
// check is the unique index on the transaction log.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached result JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventPublisher streams completed transactions to downstream consumers
// (reporting, risk). Publishing is best-effort and never gates processing.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, transaction *domain.Transaction) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
