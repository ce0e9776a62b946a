package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/messaging/kafka"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"
	"wallet-ledger/pkg/retry"

	"github.com/gin-gonic/gin"
	"github.com/rcrowley/go-metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("WLT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("settlement_currency", cfg.Payment.SettlementCurrency).
		Msg("Starting wallet ledger")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}

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

	// Ledger event stream is optional
	var publisher ports.LedgerPublisher
	if cfg.Kafka.Enabled {
		kp, err := kafka.Dial(cfg.Kafka, logger.Component(log, "kafka"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Kafka")
		}
		defer kp.Close()
		publisher = kp
	}

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	rateRepo := pgStorage.NewExchangeRateRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	isolation, err := pgStorage.ParseIsolation(cfg.Database.Isolation)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database.isolation")
	}
	transactor := pgStorage.NewTransactor(pool, isolation)

	registry := metrics.NewRegistry()

	retrier := retry.New(retry.Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxJitter:  cfg.Retry.MaxJitter,
		MaxDelay:   cfg.Retry.MaxDelay,
	}, pgStorage.IsRetryableConflict)

	// Initialize services
	walletSvc := service.NewWalletService(service.WalletServiceDeps{
		WalletRepo: walletRepo,
		TxRepo:     txRepo,
		Transactor: transactor,
		Rates:      service.NewExchangeRateService(rateRepo, cfg.Payment.FailOpenRate, logger.Component(log, "rates")),
		Merchants:  merchantRepo,
		Cache:      redisStorage.NewIdempotencyCache(rdb),
		Publisher:  publisher,
		Metrics:    service.NewGoMetricsSink(registry),
		Retry:      retrier,
	}, service.WalletConfig{
		SettlementCurrency:   cfg.Payment.SettlementCurrency,
		SettlementScale:      cfg.Payment.SettlementScale,
		AllowUnknownMerchant: cfg.Payment.AllowUnknownMerchant,
		IdempotencyTTL:       cfg.Payment.IdempotencyTTL,
	}, logger.Component(log, "wallet"))
	reportingSvc := service.NewReportingService(txRepo, walletRepo)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		AuditSvc:       auditSvc,
		Metrics:        registry,
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
		},
		Logger: log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
