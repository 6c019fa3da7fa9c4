package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/internal/core/ports"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const transactionColumns = `id, external_id, provider_id, player_id, game_id, round_id,
	type, amount, currency, balance_before, balance_after, status, error_code, created_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a transaction within a database transaction. A unique
// violation on the completed-transaction index surfaces as
// domain.ErrDuplicateTransaction so the processor can resolve the race.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.ExternalID, t.ProviderID, t.PlayerID, t.GameID, t.RoundID,
		t.Type, t.Amount, t.Currency, t.BalanceBefore, t.BalanceAfter,
		t.Status, t.ErrorCode, t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("insert transaction %s/%s: %w", t.ProviderID, t.ExternalID, domain.ErrDuplicateTransaction)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetCompletedByExternalID is the durable idempotency lookup.
func (r *TransactionRepo) GetCompletedByExternalID(ctx context.Context, providerID, externalID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE provider_id = $1 AND external_id = $2 AND status = 'COMPLETED'`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, providerID, externalID))
}

// GetBetByRound finds the completed bet a refund reverses. The earliest bet
// wins if a round somehow carries several.
func (r *TransactionRepo) GetBetByRound(ctx context.Context, playerID, roundID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE player_id = $1 AND round_id = $2 AND type = 'BET' AND status = 'COMPLETED'
		ORDER BY created_at ASC LIMIT 1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, playerID, roundID))
}

// GetRefundByRound finds an existing completed refund for a round.
func (r *TransactionRepo) GetRefundByRound(ctx context.Context, playerID, roundID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE player_id = $1 AND round_id = $2 AND type = 'REFUND' AND status = 'COMPLETED'
		ORDER BY created_at ASC LIMIT 1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, playerID, roundID))
}

// List fetches transactions with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.PlayerID != "" {
		conditions = append(conditions, fmt.Sprintf("player_id = $%d", argIdx))
		args = append(args, params.PlayerID)
		argIdx++
	}
	if params.ProviderID != "" {
		conditions = append(conditions, fmt.Sprintf("provider_id = $%d", argIdx))
		args = append(args, params.ProviderID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.ExternalID, &t.ProviderID, &t.PlayerID, &t.GameID, &t.RoundID,
			&t.Type, &t.Amount, &t.Currency, &t.BalanceBefore, &t.BalanceAfter,
			&t.Status, &t.ErrorCode, &t.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.ExternalID, &t.ProviderID, &t.PlayerID, &t.GameID, &t.RoundID,
		&t.Type, &t.Amount, &t.Currency, &t.BalanceBefore, &t.BalanceAfter,
		&t.Status, &t.ErrorCode, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
