package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seamless-wallet-gateway/config"
	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/internal/core/ports"
	"seamless-wallet-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const resultTTL = 24 * time.Hour

// Adjustments flow through the same ledger as game callbacks and need a
// provider id of their own for the idempotency key space.
const platformProviderID = "platform"

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	balanceRepo ports.BalanceRepository
	txRepo      ports.TransactionRepository
	cache       ports.ResultCache
	publisher   ports.EventPublisher
	transactor  ports.DBTransactor
	policy      config.WalletConfig
	starting    decimal.Decimal
	log         zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	balanceRepo ports.BalanceRepository,
	txRepo ports.TransactionRepository,
	cache ports.ResultCache,
	publisher ports.EventPublisher,
	transactor ports.DBTransactor,
	policy config.WalletConfig,
	log zerolog.Logger,
) *WalletServiceImpl {
	starting, err := decimal.NewFromString(policy.StartingBalance)
	if err != nil {
		log.Warn().Str("value", policy.StartingBalance).Msg("invalid starting balance, defaulting to zero")
		starting = decimal.Zero
	}
	return &WalletServiceImpl{
		balanceRepo: balanceRepo,
		txRepo:      txRepo,
		cache:       cache,
		publisher:   publisher,
		transactor:  transactor,
		policy:      policy,
		starting:    starting,
		log:         log,
	}
}

// ProcessCallback applies a canonical callback with pessimistic locking on the
// (player, currency) balance row. Every outcome, business failure included,
// comes back as a TransactionResult so the HTTP layer can always answer in
// the provider's envelope.
func (s *WalletServiceImpl) ProcessCallback(ctx context.Context, req *domain.TransactionRequest) *domain.TransactionResult {
	if req.Currency == "" {
		req.Currency = domain.DefaultCurrency
	}
	if fail := s.validate(req); fail != nil {
		return fail
	}

	if req.Type == domain.TransactionTypeBalance {
		return s.balanceQuery(ctx, req)
	}

	key := domain.CallbackKey(req.ProviderID, req.ExternalID)

	// Layer 1: Redis result check
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis result check failed, falling through to DB")
	}
	if cached != nil {
		if result := unmarshalResult(cached); result != nil {
			result.AlreadyProcessed = true
			return result
		}
	}

	// Layer 2: durable idempotency check
	prior, err := s.txRepo.GetCompletedByExternalID(ctx, req.ProviderID, req.ExternalID)
	if err != nil {
		return s.internalFailure(req, fmt.Errorf("db idempotency check: %w", err))
	}
	if prior != nil {
		return s.replay(ctx, key, prior)
	}

	// Refund resolution happens before the locked section, like any other
	// read that does not touch the balance row.
	var original *domain.Transaction
	if req.Type == domain.TransactionTypeRefund {
		original, err = s.resolveRefund(ctx, req)
		if err != nil {
			return s.internalFailure(req, err)
		}
		if original == nil {
			return s.refundOutcome(ctx, req, key)
		}
		// A round refunds at most once. A second refund under a fresh
		// external id replays the first.
		refund, err := s.txRepo.GetRefundByRound(ctx, req.PlayerID, req.RoundID)
		if err != nil {
			return s.internalFailure(req, fmt.Errorf("find prior refund: %w", err))
		}
		if refund != nil {
			return s.replay(ctx, key, refund)
		}
		if s.policy.StrictRefundAmount && !req.Amount.IsZero() && !req.Amount.Equal(original.Amount) {
			return s.failure(req, apperror.CodeInvalidAmount, decimal.Zero)
		}
	}

	result := s.applyLocked(ctx, req, original)
	// Only successes are cached. A declined bet stays retryable under the
	// same external id once funds arrive.
	if result.OK() {
		s.cacheResult(ctx, key, result)
	}
	return result
}

// applyLocked runs the atomic section: lock the balance row, apply the delta,
// append the transaction row, commit.
func (s *WalletServiceImpl) applyLocked(ctx context.Context, req *domain.TransactionRequest, original *domain.Transaction) *domain.TransactionResult {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return s.internalFailure(req, fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	balance, fail := s.lockBalance(ctx, dbTx, req)
	if fail != nil {
		return fail
	}

	amount := req.Amount
	if req.Type == domain.TransactionTypeRefund {
		// A refund reverses the original bet. The credited amount is the
		// bet's, regardless of what the provider sent.
		amount = original.Amount
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		ExternalID:    req.ExternalID,
		ProviderID:    req.ProviderID,
		PlayerID:      req.PlayerID,
		GameID:        req.GameID,
		RoundID:       req.RoundID,
		Type:          req.Type,
		Amount:        amount,
		Currency:      req.Currency,
		BalanceBefore: balance.Balance,
		Status:        domain.TransactionStatusCompleted,
		CreatedAt:     now,
	}

	if req.Type == domain.TransactionTypeBet && !balance.CanDebit(amount) {
		return s.declineInsufficient(ctx, dbTx, txn)
	}

	txn.BalanceAfter = balance.Balance.Add(txn.SignedDelta())
	if txn.BalanceAfter.IsNegative() {
		return s.declineInsufficient(ctx, dbTx, txn)
	}

	if err := s.balanceRepo.UpdateBalance(ctx, dbTx, req.PlayerID, req.Currency, txn.BalanceAfter); err != nil {
		return s.internalFailure(req, fmt.Errorf("update balance: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			// Lost a commit race on the unique index. The winner's row is
			// authoritative.
			return s.resolveCommitRace(ctx, req)
		}
		return s.internalFailure(req, fmt.Errorf("create transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return s.internalFailure(req, fmt.Errorf("commit tx: %w", err))
	}

	s.publish(ctx, txn)
	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("provider_id", txn.ProviderID).
		Str("player_id", txn.PlayerID).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("balance_after", txn.BalanceAfter.StringFixed(2)).
		Msg("transaction processed")

	return resultFromTransaction(txn, false)
}

// lockBalance locks the player's balance row, provisioning it first when the
// auto-provision policy allows. Returns a failure result instead of an error
// so callers can return it directly.
func (s *WalletServiceImpl) lockBalance(ctx context.Context, dbTx pgx.Tx, req *domain.TransactionRequest) (*domain.PlayerBalance, *domain.TransactionResult) {
	balance, err := s.balanceRepo.GetForUpdate(ctx, dbTx, req.PlayerID, req.Currency)
	if err != nil {
		return nil, s.internalFailure(req, fmt.Errorf("lock balance: %w", err))
	}
	if balance != nil {
		return balance, nil
	}
	if !s.policy.AutoProvision {
		return nil, s.failure(req, apperror.CodePlayerNotFound, decimal.Zero)
	}

	now := time.Now().UTC()
	seed := &domain.PlayerBalance{
		PlayerID:  req.PlayerID,
		Currency:  req.Currency,
		Balance:   s.starting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.balanceRepo.Create(ctx, dbTx, seed); err != nil {
		return nil, s.internalFailure(req, fmt.Errorf("provision balance: %w", err))
	}
	// Two first-touch callbacks can race the insert. Re-lock so both end up
	// holding the winner's row.
	balance, err = s.balanceRepo.GetForUpdate(ctx, dbTx, req.PlayerID, req.Currency)
	if err != nil {
		return nil, s.internalFailure(req, fmt.Errorf("relock balance: %w", err))
	}
	if balance == nil {
		return nil, s.internalFailure(req, fmt.Errorf("balance missing after provision: %s/%s", req.PlayerID, req.Currency))
	}
	return balance, nil
}

// declineInsufficient records the failed bet and commits. The failed row does
// not hit the completed-transaction index, so the provider can retry the same
// external id after a top-up.
func (s *WalletServiceImpl) declineInsufficient(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) *domain.TransactionResult {
	code := apperror.CodeInsufficientFunds
	txn.Status = domain.TransactionStatusFailed
	txn.ErrorCode = &code
	txn.BalanceAfter = txn.BalanceBefore

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		s.log.Warn().Err(err).Str("external_id", txn.ExternalID).Msg("failed to record declined bet")
	} else if err := dbTx.Commit(ctx); err != nil {
		s.log.Warn().Err(err).Str("external_id", txn.ExternalID).Msg("failed to commit declined bet")
	}

	s.log.Info().
		Str("provider_id", txn.ProviderID).
		Str("player_id", txn.PlayerID).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("balance", txn.BalanceBefore.StringFixed(2)).
		Msg("bet declined, insufficient funds")

	return &domain.TransactionResult{
		Status:    domain.TransactionStatusFailed,
		ErrorCode: code,
		Balance:   txn.BalanceBefore,
		Currency:  txn.Currency,
	}
}

// resolveRefund finds the completed bet a refund reverses. Returns nil, nil
// when no bet exists for the round; the caller decides between the duplicate
// and not-found outcomes.
func (s *WalletServiceImpl) resolveRefund(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if req.RoundID == "" {
		return nil, nil
	}
	bet, err := s.txRepo.GetBetByRound(ctx, req.PlayerID, req.RoundID)
	if err != nil {
		return nil, fmt.Errorf("find original bet: %w", err)
	}
	if bet == nil {
		return nil, nil
	}
	return bet, nil
}

// refundOutcome handles a refund whose round has no outstanding bet. A round
// already refunded under a different external id replays the prior refund;
// anything else is ORIGINAL_TX_NOT_FOUND.
func (s *WalletServiceImpl) refundOutcome(ctx context.Context, req *domain.TransactionRequest, key string) *domain.TransactionResult {
	if req.RoundID != "" {
		refund, err := s.txRepo.GetRefundByRound(ctx, req.PlayerID, req.RoundID)
		if err != nil {
			return s.internalFailure(req, fmt.Errorf("find prior refund: %w", err))
		}
		if refund != nil {
			return s.replay(ctx, key, refund)
		}
	}
	result := s.failureWithBalance(ctx, req, apperror.CodeOriginalTxNotFound)
	s.recordRejectedRefund(ctx, req, result.Balance)
	return result
}

// recordRejectedRefund keeps an audit row for a refund with no matching bet.
// Best effort; the provider gets the rejection either way.
func (s *WalletServiceImpl) recordRejectedRefund(ctx context.Context, req *domain.TransactionRequest, balance decimal.Decimal) {
	code := apperror.CodeOriginalTxNotFound
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		ExternalID:    req.ExternalID,
		ProviderID:    req.ProviderID,
		PlayerID:      req.PlayerID,
		GameID:        req.GameID,
		RoundID:       req.RoundID,
		Type:          domain.TransactionTypeRefund,
		Amount:        req.Amount,
		Currency:      req.Currency,
		BalanceBefore: balance,
		BalanceAfter:  balance,
		Status:        domain.TransactionStatusFailed,
		ErrorCode:     &code,
		CreatedAt:     now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("external_id", req.ExternalID).Msg("failed to record rejected refund")
		return
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		s.log.Warn().Err(err).Str("external_id", req.ExternalID).Msg("failed to record rejected refund")
		return
	}
	if err := dbTx.Commit(ctx); err != nil {
		s.log.Warn().Err(err).Str("external_id", req.ExternalID).Msg("failed to commit rejected refund")
	}
}

// resolveCommitRace re-reads the winner after a unique violation on the
// completed-transaction index.
func (s *WalletServiceImpl) resolveCommitRace(ctx context.Context, req *domain.TransactionRequest) *domain.TransactionResult {
	winner, err := s.txRepo.GetCompletedByExternalID(ctx, req.ProviderID, req.ExternalID)
	if err != nil || winner == nil {
		return s.internalFailure(req, fmt.Errorf("resolve duplicate %s/%s: %w", req.ProviderID, req.ExternalID, err))
	}
	return s.replay(ctx, domain.CallbackKey(req.ProviderID, req.ExternalID), winner)
}

// balanceQuery is the read-only path. It never mutates and never provisions.
func (s *WalletServiceImpl) balanceQuery(ctx context.Context, req *domain.TransactionRequest) *domain.TransactionResult {
	balance, err := s.balanceRepo.Get(ctx, req.PlayerID, req.Currency)
	if err != nil {
		return s.internalFailure(req, fmt.Errorf("get balance: %w", err))
	}
	if balance == nil {
		if s.policy.AutoProvision {
			// The row appears on the first money-moving callback; until then
			// the seed amount is the player's balance.
			return &domain.TransactionResult{
				Status:   domain.TransactionStatusCompleted,
				Balance:  s.starting,
				Currency: req.Currency,
			}
		}
		return s.failure(req, apperror.CodePlayerNotFound, decimal.Zero)
	}
	return &domain.TransactionResult{
		Status:   domain.TransactionStatusCompleted,
		Balance:  balance.Balance,
		Currency: balance.Currency,
	}
}

// GetBalance implements the platform API balance lookup.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, playerID, currency string) (*domain.PlayerBalance, error) {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	balance, err := s.balanceRepo.Get(ctx, playerID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get balance: %w", err))
	}
	if balance == nil {
		return nil, apperror.ErrPlayerNotFound()
	}
	return balance, nil
}

// Adjust applies a deposit or withdrawal through the locked ledger path.
// Unlike callbacks it reports failures as errors, because the platform API
// speaks the canonical envelope rather than a provider dialect.
func (s *WalletServiceImpl) Adjust(ctx context.Context, req ports.AdjustmentRequest) (*domain.Transaction, error) {
	if req.Type != domain.TransactionTypeDeposit && req.Type != domain.TransactionTypeWithdrawal {
		return nil, apperror.ErrInvalidTransactionType(string(req.Type))
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.PlayerID == "" {
		return nil, apperror.Validation("player_id is required")
	}
	if req.Currency == "" {
		req.Currency = domain.DefaultCurrency
	}
	reference := req.Reference
	if reference == "" {
		reference = "adj-" + uuid.NewString()
	}

	prior, err := s.txRepo.GetCompletedByExternalID(ctx, platformProviderID, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency check: %w", err))
	}
	if prior != nil {
		return prior, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	balance, err := s.balanceRepo.GetForUpdate(ctx, dbTx, req.PlayerID, req.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if balance == nil {
		if req.Type != domain.TransactionTypeDeposit {
			return nil, apperror.ErrPlayerNotFound()
		}
		// A first deposit provisions the row at zero; the deposit itself is
		// the only credit.
		now := time.Now().UTC()
		seed := &domain.PlayerBalance{
			PlayerID:  req.PlayerID,
			Currency:  req.Currency,
			Balance:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.balanceRepo.Create(ctx, dbTx, seed); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("provision balance: %w", err))
		}
		balance, err = s.balanceRepo.GetForUpdate(ctx, dbTx, req.PlayerID, req.Currency)
		if err != nil || balance == nil {
			return nil, apperror.InternalError(fmt.Errorf("relock balance: %w", err))
		}
	}

	if req.Type == domain.TransactionTypeWithdrawal && !balance.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		ExternalID:    reference,
		ProviderID:    platformProviderID,
		PlayerID:      req.PlayerID,
		Type:          req.Type,
		Amount:        req.Amount,
		Currency:      req.Currency,
		BalanceBefore: balance.Balance,
		Status:        domain.TransactionStatusCompleted,
		CreatedAt:     now,
	}
	txn.BalanceAfter = balance.Balance.Add(txn.SignedDelta())

	if err := s.balanceRepo.UpdateBalance(ctx, dbTx, req.PlayerID, req.Currency, txn.BalanceAfter); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			if winner, werr := s.txRepo.GetCompletedByExternalID(ctx, platformProviderID, reference); werr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.publish(ctx, txn)
	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("player_id", txn.PlayerID).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.StringFixed(2)).
		Msg("adjustment applied")

	return txn, nil
}

// validate checks the canonical request shape. Failures come back as results
// so the callback endpoint answers in the provider's envelope.
func (s *WalletServiceImpl) validate(req *domain.TransactionRequest) *domain.TransactionResult {
	if req.PlayerID == "" {
		return s.failure(req, apperror.CodeMalformedRequest, decimal.Zero)
	}
	if !req.Type.Valid() {
		return s.failure(req, apperror.CodeInvalidTransactionType, decimal.Zero)
	}
	if req.Type == domain.TransactionTypeBalance {
		return nil
	}
	if req.ExternalID == "" {
		return s.failure(req, apperror.CodeMalformedRequest, decimal.Zero)
	}
	if req.Amount.IsNegative() {
		return s.failure(req, apperror.CodeInvalidAmount, decimal.Zero)
	}
	if req.Amount.IsZero() && (req.Type == domain.TransactionTypeBet || req.Type == domain.TransactionTypeWin) {
		return s.failure(req, apperror.CodeInvalidAmount, decimal.Zero)
	}
	return nil
}

// replay builds an already-processed result from a prior transaction and
// refreshes the cache.
func (s *WalletServiceImpl) replay(ctx context.Context, key string, txn *domain.Transaction) *domain.TransactionResult {
	result := resultFromTransaction(txn, true)
	s.cacheResult(ctx, key, result)
	return result
}

func (s *WalletServiceImpl) cacheResult(ctx context.Context, key string, result *domain.TransactionResult) {
	// The cached copy never carries the replay marker; the flag belongs to
	// the delivery, not the transaction.
	clone := *result
	clone.AlreadyProcessed = false
	b, err := json.Marshal(&clone)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, resultTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache result in redis")
	}
}

func (s *WalletServiceImpl) publish(ctx context.Context, txn *domain.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransaction(ctx, txn); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to publish transaction event")
	}
}

// failureWithBalance attaches the player's current balance to a failure when
// the read succeeds; anonymous failures fall back to zero.
func (s *WalletServiceImpl) failureWithBalance(ctx context.Context, req *domain.TransactionRequest, code string) *domain.TransactionResult {
	current := decimal.Zero
	if balance, err := s.balanceRepo.Get(ctx, req.PlayerID, req.Currency); err == nil && balance != nil {
		current = balance.Balance
	}
	return s.failure(req, code, current)
}

func (s *WalletServiceImpl) failure(req *domain.TransactionRequest, code string, balance decimal.Decimal) *domain.TransactionResult {
	return &domain.TransactionResult{
		Status:    domain.TransactionStatusFailed,
		ErrorCode: code,
		Balance:   balance,
		Currency:  req.Currency,
	}
}

func (s *WalletServiceImpl) internalFailure(req *domain.TransactionRequest, err error) *domain.TransactionResult {
	s.log.Error().Err(err).
		Str("provider_id", req.ProviderID).
		Str("external_id", req.ExternalID).
		Str("player_id", req.PlayerID).
		Msg("callback processing failed")
	return s.failure(req, apperror.CodeInternalError, decimal.Zero)
}

func resultFromTransaction(txn *domain.Transaction, replayed bool) *domain.TransactionResult {
	result := &domain.TransactionResult{
		Status:           txn.Status,
		Balance:          txn.BalanceAfter,
		Currency:         txn.Currency,
		PlatformTxID:     txn.ID,
		AlreadyProcessed: replayed,
	}
	if txn.ErrorCode != nil {
		result.ErrorCode = *txn.ErrorCode
	}
	return result
}

func unmarshalResult(data []byte) *domain.TransactionResult {
	var result domain.TransactionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}
