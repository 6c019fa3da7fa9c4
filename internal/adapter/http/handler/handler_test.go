package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"seamless-wallet-gateway/config"
	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/internal/core/ports"
	"seamless-wallet-gateway/internal/core/ports/mocks"
	"seamless-wallet-gateway/internal/provider"
	"seamless-wallet-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type routerDeps struct {
	walletSvc    *mocks.MockWalletService
	reportingSvc *mocks.MockReportingService
	router       *gin.Engine
	ctrl         *gomock.Controller
}

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "wallet-gateway"}

func setupRouter(t *testing.T) *routerDeps {
	ctrl := gomock.NewController(t)
	d := &routerDeps{
		walletSvc:    mocks.NewMockWalletService(ctrl),
		reportingSvc: mocks.NewMockReportingService(ctrl),
		ctrl:         ctrl,
	}
	d.router = SetupRouter(RouterDeps{
		WalletSvc:    d.walletSvc,
		ReportingSvc: d.reportingSvc,
		Registry:     provider.NewRegistry(),
		JWT:          testJWT,
		Logger:       zerolog.Nop(),
	})
	return d
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops@example.com",
		"iss": testJWT.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWT.Secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

// ==================== Callback endpoint ====================

func TestCallback_PragmaticBet(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().ProcessCallback(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.TransactionRequest) *domain.TransactionResult {
			assert.Equal(t, provider.ProviderPragmatic, req.ProviderID)
			assert.Equal(t, domain.TransactionTypeBet, req.Type)
			assert.Equal(t, "player-9", req.PlayerID)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("12.50")))
			return &domain.TransactionResult{
				Status:   domain.TransactionStatusCompleted,
				Balance:  decimal.RequireFromString("87.50"),
				Currency: "USD",
			}
		})

	body := `{"playerId":"player-9","amount":"12.50","type":"debit","reference":"tx-1","roundId":"r-1","currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/pragmatic", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "0", resp["errorcode"])
	assert.Equal(t, 87.50, resp["balance"])
}

func TestCallback_FormEncoded(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().ProcessCallback(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.TransactionRequest) *domain.TransactionResult {
			assert.Equal(t, domain.TransactionTypeWin, req.Type)
			return &domain.TransactionResult{
				Status:   domain.TransactionStatusCompleted,
				Balance:  decimal.RequireFromString("120.00"),
				Currency: "USD",
			}
		})

	body := "playerId=player-9&amount=20.00&type=credit&reference=tx-2&roundId=r-1"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/pragmatic", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"errorcode":"0"`)
}

func TestCallback_BusinessFailureStill200(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().ProcessCallback(gomock.Any(), gomock.Any()).Return(
		&domain.TransactionResult{
			Status:    domain.TransactionStatusFailed,
			ErrorCode: apperror.CodeInsufficientFunds,
			Balance:   decimal.RequireFromString("5.00"),
			Currency:  "USD",
		})

	body := `{"playerId":"player-9","amount":"100.00","type":"debit","reference":"tx-3"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/pragmatic", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp["errorcode"])
}

func TestCallback_MalformedBodyStill200(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/pragmatic", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"errorcode":"1"`)
}

func TestCallback_UnparseableAmountKeepsAdapterCode(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/infin",
		strings.NewReader(`{"player_id":"p1","type":"bet","amount":"abc"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), `"error":"INVALID_AMOUNT"`)
}

func TestCallback_UnknownProviderUsesGenericDialect(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().ProcessCallback(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.TransactionRequest) *domain.TransactionResult {
			assert.Equal(t, provider.ProviderGeneric, req.ProviderID)
			return &domain.TransactionResult{
				Status:   domain.TransactionStatusCompleted,
				Balance:  decimal.RequireFromString("50.00"),
				Currency: "USD",
			}
		})

	body := `{"player_id":"p1","amount":"5.00","type":"bet","transaction_id":"tx-4"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/some-new-studio", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
}

func TestCallback_GitSlotPark(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().ProcessCallback(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.TransactionRequest) *domain.TransactionResult {
			assert.Equal(t, provider.ProviderGitSlotPark, req.ProviderID)
			assert.Equal(t, domain.TransactionTypeRefund, req.Type)
			return &domain.TransactionResult{
				Status:           domain.TransactionStatusCompleted,
				Balance:          decimal.RequireFromString("100.00"),
				Currency:         "USD",
				AlreadyProcessed: true,
			}
		})

	body := `{"userCode":"u-7","operation":"refund","amount":"10.00","transactionId":"tx-5","roundId":"r-9"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/gitslotpark", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
}

// ==================== Platform API ====================

func TestGetBalance_RequiresAuth(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/p1/balance", nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetBalance(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().GetBalance(gomock.Any(), "p1", "USD").Return(
		&domain.PlayerBalance{
			PlayerID: "p1",
			Currency: "USD",
			Balance:  decimal.RequireFromString("250.00"),
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/p1/balance?currency=USD", nil)
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"250.00"`)
}

func TestGetBalance_PlayerNotFound(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().GetBalance(gomock.Any(), "ghost", "").Return(nil, apperror.ErrPlayerNotFound())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/ghost/balance", nil)
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodePlayerNotFound)
}

func TestDeposit(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().Adjust(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.AdjustmentRequest) (*domain.Transaction, error) {
			assert.Equal(t, "p1", req.PlayerID)
			assert.Equal(t, domain.TransactionTypeDeposit, req.Type)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("50.00")))
			return &domain.Transaction{
				ID:           uuid.New(),
				PlayerID:     "p1",
				Type:         domain.TransactionTypeDeposit,
				Amount:       req.Amount,
				Currency:     "USD",
				BalanceAfter: decimal.RequireFromString("150.00"),
				Status:       domain.TransactionStatusCompleted,
			}, nil
		})

	body := `{"amount":"50.00","currency":"USD","reference":"dep-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/p1/deposit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"150.00"`)
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.walletSvc.EXPECT().Adjust(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	body := `{"amount":"500.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/p1/withdraw", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeInsufficientFunds)
}

func TestDeposit_InvalidAmount(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	body := `{"amount":"not-a-number"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/p1/deposit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeInvalidAmount)
}

func TestListTransactions(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.reportingSvc.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			assert.Equal(t, "p1", params.PlayerID)
			require.NotNil(t, params.Type)
			assert.Equal(t, domain.TransactionTypeBet, *params.Type)
			return []domain.Transaction{{
				ID:       uuid.New(),
				PlayerID: "p1",
				Type:     domain.TransactionTypeBet,
				Status:   domain.TransactionStatusCompleted,
			}}, 1, nil
		})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?player_id=p1&type=BET", nil)
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

// ==================== Health ====================

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthCheck_Degraded(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}
