package postgres

import (
	"context"
	"errors"
	"fmt"

	"seamless-wallet-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Get fetches a balance row without locking.
func (r *BalanceRepo) Get(ctx context.Context, playerID, currency string) (*domain.PlayerBalance, error) {
	query := `SELECT player_id, currency, balance, created_at, updated_at
		FROM player_balances WHERE player_id = $1 AND currency = $2`

	b := &domain.PlayerBalance{}
	err := r.pool.QueryRow(ctx, query, playerID, currency).Scan(
		&b.PlayerID, &b.Currency, &b.Balance, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetForUpdate fetches a balance row with pessimistic locking. All concurrent
// callbacks for the same (player_id, currency) serialize on this lock.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, playerID, currency string) (*domain.PlayerBalance, error) {
	query := `SELECT player_id, currency, balance, created_at, updated_at
		FROM player_balances WHERE player_id = $1 AND currency = $2 FOR UPDATE`

	b := &domain.PlayerBalance{}
	err := tx.QueryRow(ctx, query, playerID, currency).Scan(
		&b.PlayerID, &b.Currency, &b.Balance, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// Create inserts a new balance row. Concurrent first-touch callbacks can both
// attempt the insert; the conflict clause lets the loser proceed to re-lock
// the winner's row.
func (r *BalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.PlayerBalance) error {
	query := `INSERT INTO player_balances (player_id, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id, currency) DO NOTHING`

	_, err := tx.Exec(ctx, query, b.PlayerID, b.Currency, b.Balance, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

// UpdateBalance writes a new balance within a transaction. Only ever called
// from the processor's locked section.
func (r *BalanceRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, playerID, currency string, balance decimal.Decimal) error {
	query := `UPDATE player_balances SET balance = $1, updated_at = NOW()
		WHERE player_id = $2 AND currency = $3`

	tag, err := tx.Exec(ctx, query, balance, playerID, currency)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance not found: %s/%s", playerID, currency)
	}
	return nil
}
