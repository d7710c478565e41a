package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agri-market-engine/config"
	"agri-market-engine/internal/adapter/events"
	httpHandler "agri-market-engine/internal/adapter/http/handler"
	pgStorage "agri-market-engine/internal/adapter/storage/postgres"
	redisStorage "agri-market-engine/internal/adapter/storage/redis"
	"agri-market-engine/internal/core/ports"
	"agri-market-engine/internal/service"
	"agri-market-engine/migrations"
	"agri-market-engine/pkg/logger"
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
		Msg("Starting AgriMarket Transaction Engine")

	ctx := context.Background()

	// Apply pending migrations
	if cfg.Database.MigrateOnStart {
		if err := migrations.Up(ctx, cfg.Database.DSN()); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations applied")
	}

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
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	productRepo := pgStorage.NewProductRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	escrowRepo := pgStorage.NewEscrowRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Redis-backed adapters
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	publisher := events.NewStreamPublisher(rdb, cfg.Engine.EventStream)

	// Core services
	clock := service.RealClock{}
	tokenSvc := service.NewJWTTokenService(cfg.Auth.TokenSecret, cfg.Auth.Issuer)
	ledgerSvc := service.NewLedgerService(
		walletRepo, txRepo, auditRepo, escrowRepo,
		idempotencyCache, transactor, clock, cfg.Engine.TxTimeout,
		logger.Component(log, "ledger"),
	)
	orderSvc := service.NewOrderService(
		orderRepo, productRepo, escrowRepo, ledgerSvc,
		transactor, publisher, clock, cfg.Engine.TxTimeout,
		logger.Component(log, "orders"),
	)
	escrowSvc := service.NewEscrowService(
		escrowRepo, ledgerSvc, transactor, clock, cfg.Engine.TxTimeout,
		logger.Component(log, "escrow"),
	)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		OrderSvc:       orderSvc,
		EscrowSvc:      escrowSvc,
		TokenSvc:       tokenSvc,
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
