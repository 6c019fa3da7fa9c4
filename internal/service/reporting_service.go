package service

import (
	"context"
	"fmt"

	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/internal/core/ports"
	"seamless-wallet-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ReportingServiceImpl implements ports.ReportingService.
type ReportingServiceImpl struct {
	txRepo ports.TransactionRepository
	log    zerolog.Logger
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(txRepo ports.TransactionRepository, log zerolog.Logger) *ReportingServiceImpl {
	return &ReportingServiceImpl{txRepo: txRepo, log: log}
}

// ListTransactions returns a filtered, paginated page of the transaction log.
func (s *ReportingServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	if params.Status != nil && !params.Status.Valid() {
		return nil, 0, apperror.Validation(fmt.Sprintf("unknown status %q", *params.Status))
	}
	if params.Type != nil && !params.Type.Valid() {
		return nil, 0, apperror.Validation(fmt.Sprintf("unknown type %q", *params.Type))
	}

	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}
