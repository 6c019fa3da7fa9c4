package handler

import (
	"errors"
	"io"
	"net/http"

	"seamless-wallet-gateway/internal/adapter/http/middleware"
	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/internal/core/ports"
	"seamless-wallet-gateway/internal/provider"
	"seamless-wallet-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CallbackHandler is the seamless wallet endpoint. Whatever happens inside,
// the provider gets HTTP 200 with its own envelope; anything else makes game
// servers retry forever or drop players mid-round.
type CallbackHandler struct {
	walletSvc ports.WalletService
	registry  *provider.Registry
	metrics   *middleware.Metrics
	log       zerolog.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(walletSvc ports.WalletService, registry *provider.Registry, metrics *middleware.Metrics, log zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{walletSvc: walletSvc, registry: registry, metrics: metrics, log: log}
}

// Handle processes POST /api/v1/callbacks/*provider.
func (h *CallbackHandler) Handle(c *gin.Context) {
	adapter := h.registry.Resolve(c.Param("provider"))

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.respond(c, adapter, &domain.TransactionResult{
			Status:    domain.TransactionStatusFailed,
			ErrorCode: apperror.CodeMalformedRequest,
			Balance:   decimal.Zero,
			Currency:  domain.DefaultCurrency,
		})
		return
	}

	req, err := adapter.Decode(body, c.ContentType())
	if err != nil {
		h.log.Warn().Err(err).
			Str("provider", adapter.ProviderID()).
			Msg("undecodable callback")
		h.respond(c, adapter, &domain.TransactionResult{
			Status:    domain.TransactionStatusFailed,
			ErrorCode: decodeFailureCode(err),
			Balance:   decimal.Zero,
			Currency:  domain.DefaultCurrency,
		})
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveCallback(req.ProviderID, string(req.Type))
	}

	result := h.walletSvc.ProcessCallback(c.Request.Context(), req)

	if h.metrics != nil {
		h.metrics.ObserveOutcome(req.ProviderID, result.ErrorCode)
	}
	h.respond(c, adapter, result)
}

// decodeFailureCode keeps the code the adapter chose, so an unparseable
// amount answers INVALID_AMOUNT rather than a blanket MALFORMED_REQUEST.
func decodeFailureCode(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return apperror.CodeMalformedRequest
}

func (h *CallbackHandler) respond(c *gin.Context, adapter provider.Adapter, result *domain.TransactionResult) {
	payload, err := adapter.Encode(result)
	if err != nil {
		h.log.Error().Err(err).Str("provider", adapter.ProviderID()).Msg("failed to encode callback response")
		c.Data(http.StatusOK, "application/json", []byte(`{}`))
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}
