package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// memStore is a shared in-memory stand-in for PostgreSQL. Row locking follows
// the database's semantics: GetForUpdate takes a per-(player, currency) mutex
// that is held until the transaction commits or rolls back, so concurrent
// callbacks serialize exactly as they would against the real schema.
type memStore struct {
	mu           sync.Mutex
	balances     map[string]*domain.PlayerBalance
	transactions []*domain.Transaction
	rowLocks     map[string]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		balances: make(map[string]*domain.PlayerBalance),
		rowLocks: make(map[string]*sync.Mutex),
	}
}

func balanceKey(playerID, currency string) string {
	return playerID + "|" + currency
}

func (s *memStore) rowLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[key] = l
	}
	return l
}

// seed inserts a balance row directly, bypassing locks. Test setup only.
func (s *memStore) seed(b *domain.PlayerBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *b
	s.balances[balanceKey(b.PlayerID, b.Currency)] = &copied
}

// --- Transactor ---

type memTransactor struct {
	store *memStore
}

func newMemTransactor(store *memStore) *memTransactor {
	return &memTransactor{store: store}
}

func (t *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{
		store:   t.store,
		held:    make(map[string]*sync.Mutex),
		pending: make(map[string]decimal.Decimal),
	}, nil
}

// memTx implements pgx.Tx over the in-memory store. It tracks the row locks
// taken during the transaction and releases them on commit or rollback.
// Balance writes are buffered and only reach the store on commit; a rollback
// discards them, as the database would.
type memTx struct {
	noopTx
	store   *memStore
	mu      sync.Mutex
	held    map[string]*sync.Mutex
	pending map[string]decimal.Decimal
	done    bool
}

func (t *memTx) acquire(key string) {
	t.mu.Lock()
	if _, ok := t.held[key]; ok {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	l := t.store.rowLock(key)
	l.Lock()

	t.mu.Lock()
	t.held[key] = l
	t.mu.Unlock()
}

func (t *memTx) stage(key string, balance decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[key] = balance
}

func (t *memTx) staged(key string) (decimal.Decimal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.pending[key]
	return v, ok
}

func (t *memTx) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.pending = nil
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	pending := t.pending
	t.mu.Unlock()

	// Writes land while the row locks are still held.
	t.store.mu.Lock()
	for key, balance := range pending {
		if b, ok := t.store.balances[key]; ok {
			b.Balance = balance
		}
	}
	t.store.mu.Unlock()

	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.release()
	return nil
}

// --- Balance repository ---

type memBalanceRepo struct {
	store *memStore
}

func newMemBalanceRepo(store *memStore) *memBalanceRepo {
	return &memBalanceRepo{store: store}
}

func (r *memBalanceRepo) Get(ctx context.Context, playerID, currency string) (*domain.PlayerBalance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.balances[balanceKey(playerID, currency)]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (r *memBalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, playerID, currency string) (*domain.PlayerBalance, error) {
	mt, ok := tx.(*memTx)
	if !ok {
		return nil, fmt.Errorf("unexpected tx type %T", tx)
	}
	key := balanceKey(playerID, currency)
	mt.acquire(key)
	b, err := r.Get(ctx, playerID, currency)
	if err != nil || b == nil {
		return b, err
	}
	// Reads inside the transaction see its own uncommitted writes.
	if staged, ok := mt.staged(key); ok {
		b.Balance = staged
	}
	return b, nil
}

func (r *memBalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.PlayerBalance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := balanceKey(b.PlayerID, b.Currency)
	if _, exists := r.store.balances[key]; exists {
		// ON CONFLICT DO NOTHING
		return nil
	}
	copied := *b
	r.store.balances[key] = &copied
	return nil
}

func (r *memBalanceRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, playerID, currency string, balance decimal.Decimal) error {
	mt, ok := tx.(*memTx)
	if !ok {
		return fmt.Errorf("unexpected tx type %T", tx)
	}
	key := balanceKey(playerID, currency)
	r.store.mu.Lock()
	_, exists := r.store.balances[key]
	r.store.mu.Unlock()
	if !exists {
		return fmt.Errorf("balance not found: %s/%s", playerID, currency)
	}
	mt.stage(key, balance)
	return nil
}

// --- Transaction repository ---

type memTransactionRepo struct {
	store *memStore
}

func newMemTransactionRepo(store *memStore) *memTransactionRepo {
	return &memTransactionRepo{store: store}
}

func (r *memTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if t.Status == domain.TransactionStatusCompleted {
		for _, existing := range r.store.transactions {
			if existing.Status == domain.TransactionStatusCompleted &&
				existing.ProviderID == t.ProviderID && existing.ExternalID == t.ExternalID {
				return fmt.Errorf("insert transaction %s/%s: %w", t.ProviderID, t.ExternalID, domain.ErrDuplicateTransaction)
			}
		}
	}
	copied := *t
	r.store.transactions = append(r.store.transactions, &copied)
	return nil
}

func (r *memTransactionRepo) GetCompletedByExternalID(ctx context.Context, providerID, externalID string) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.transactions {
		if t.Status == domain.TransactionStatusCompleted && t.ProviderID == providerID && t.ExternalID == externalID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memTransactionRepo) byRound(playerID, roundID string, txType domain.TransactionType) *domain.Transaction {
	var found *domain.Transaction
	for _, t := range r.store.transactions {
		if t.Status != domain.TransactionStatusCompleted || t.PlayerID != playerID || t.RoundID != roundID || t.Type != txType {
			continue
		}
		if found == nil || t.CreatedAt.Before(found.CreatedAt) {
			found = t
		}
	}
	return found
}

func (r *memTransactionRepo) GetBetByRound(ctx context.Context, playerID, roundID string) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if t := r.byRound(playerID, roundID, domain.TransactionTypeBet); t != nil {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (r *memTransactionRepo) GetRefundByRound(ctx context.Context, playerID, roundID string) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if t := r.byRound(playerID, roundID, domain.TransactionTypeRefund); t != nil {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (r *memTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []domain.Transaction
	for _, t := range r.store.transactions {
		if params.PlayerID != "" && t.PlayerID != params.PlayerID {
			continue
		}
		if params.ProviderID != "" && t.ProviderID != params.ProviderID {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		if params.From != nil && t.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && t.CreatedAt.Unix() > *params.To {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- no-op pgx.Tx base ---

type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
