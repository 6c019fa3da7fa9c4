package handler

import (
	"seamless-wallet-gateway/config"
	"seamless-wallet-gateway/internal/adapter/http/middleware"
	"seamless-wallet-gateway/internal/core/ports"
	"seamless-wallet-gateway/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	ReportingSvc   ports.ReportingService
	Registry       *provider.Registry
	JWT            config.JWTConfig
	Metrics        *middleware.Metrics // nil = metrics disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// --- Provider callbacks (no platform auth; providers authenticate out
	// of band and the processor is idempotent either way) ---
	callbackHandler := NewCallbackHandler(deps.WalletSvc, deps.Registry, deps.Metrics, deps.Logger)
	v1.POST("/callbacks/*provider", middleware.CallbackBodyLimit(), callbackHandler.Handle)

	// --- JWT-authenticated platform API ---
	jwtAuth := middleware.JWTAuth(deps.JWT, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.ReportingSvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.GET("/:player_id/balance", walletHandler.GetBalance)
		wallets.POST("/:player_id/deposit", walletHandler.Deposit)
		wallets.POST("/:player_id/withdraw", walletHandler.Withdraw)
	}

	transactions := v1.Group("/transactions", jwtAuth)
	{
		transactions.GET("", walletHandler.ListTransactions)
	}

	return r
}
