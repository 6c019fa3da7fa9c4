package handler

import (
	"strconv"

	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/internal/core/ports"
	"seamless-wallet-gateway/pkg/apperror"
	"seamless-wallet-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler exposes the JWT-protected platform API: balance lookups,
// deposits, withdrawals and the transaction log.
type WalletHandler struct {
	walletSvc    ports.WalletService
	reportingSvc ports.ReportingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, reportingSvc ports.ReportingService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, reportingSvc: reportingSvc}
}

type balanceResponse struct {
	PlayerID string `json:"player_id"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// GetBalance handles GET /api/v1/wallets/:player_id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	playerID := c.Param("player_id")
	currency := c.Query("currency")

	balance, err := h.walletSvc.GetBalance(c.Request.Context(), playerID, currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, balanceResponse{
		PlayerID: balance.PlayerID,
		Currency: balance.Currency,
		Balance:  balance.Balance.StringFixed(2),
	})
}

type adjustmentRequest struct {
	Currency  string `json:"currency"`
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference"`
}

type adjustmentResponse struct {
	TransactionID string `json:"transaction_id"`
	PlayerID      string `json:"player_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Balance       string `json:"balance"`
}

// Deposit handles POST /api/v1/wallets/:player_id/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.adjust(c, domain.TransactionTypeDeposit)
}

// Withdraw handles POST /api/v1/wallets/:player_id/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.adjust(c, domain.TransactionTypeWithdrawal)
}

func (h *WalletHandler) adjust(c *gin.Context, txType domain.TransactionType) {
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	txn, err := h.walletSvc.Adjust(c.Request.Context(), ports.AdjustmentRequest{
		PlayerID:  c.Param("player_id"),
		Currency:  req.Currency,
		Amount:    amount,
		Type:      txType,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, adjustmentResponse{
		TransactionID: txn.ID.String(),
		PlayerID:      txn.PlayerID,
		Type:          string(txn.Type),
		Amount:        txn.Amount.StringFixed(2),
		Currency:      txn.Currency,
		Balance:       txn.BalanceAfter.StringFixed(2),
	})
}

type transactionListResponse struct {
	Items      []domain.Transaction `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int64                `json:"total_pages"`
}

// ListTransactions handles GET /api/v1/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	params := ports.TransactionListParams{
		PlayerID:   c.Query("player_id"),
		ProviderID: c.Query("provider_id"),
	}

	if v := c.Query("status"); v != "" {
		status := domain.TransactionStatus(v)
		params.Status = &status
	}
	if v := c.Query("type"); v != "" {
		txType := domain.TransactionType(v)
		params.Type = &txType
	}
	if v := c.Query("from"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation("from must be a unix timestamp"))
			return
		}
		params.From = &ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation("to must be a unix timestamp"))
			return
		}
		params.To = &ts
	}
	params.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	params.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}

	items, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []domain.Transaction{}
	}

	totalPages := total / int64(params.PageSize)
	if total%int64(params.PageSize) != 0 {
		totalPages++
	}

	response.OK(c, transactionListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}
