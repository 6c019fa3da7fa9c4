package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seamless-wallet-gateway/config"
	"seamless-wallet-gateway/internal/adapter/events"
	httpHandler "seamless-wallet-gateway/internal/adapter/http/handler"
	"seamless-wallet-gateway/internal/adapter/http/middleware"
	pgStorage "seamless-wallet-gateway/internal/adapter/storage/postgres"
	redisStorage "seamless-wallet-gateway/internal/adapter/storage/redis"
	"seamless-wallet-gateway/internal/core/ports"
	"seamless-wallet-gateway/internal/provider"
	"seamless-wallet-gateway/internal/service"
	"seamless-wallet-gateway/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Seamless Wallet Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)
	resultCache := redisStorage.NewResultCache(rdb)

	// Event publisher
	var publisher ports.EventPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		writer := events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		kafkaPub := events.NewKafkaPublisher(writer)
		defer kafkaPub.Close() //nolint:errcheck
		publisher = kafkaPub
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher enabled")
	}

	// Business services
	walletSvc := service.NewWalletService(balanceRepo, txRepo, resultCache, publisher, transactor, cfg.Wallet, log)
	reportingSvc := service.NewReportingService(txRepo, log)

	// Provider adapters
	registry := provider.NewRegistry()

	// Observability
	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		ReportingSvc:   reportingSvc,
		Registry:       registry,
		JWT:            cfg.JWT,
		Metrics:        metrics,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
