package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billing-service/config"
	"billing-service/internal/handler"
	"billing-service/internal/provider/razorpay"
	"billing-service/internal/repository"
	"billing-service/internal/router"
	"billing-service/internal/usecase"
	"billing-service/pkg/cache"
	"billing-service/pkg/client"
	"billing-service/pkg/exchange"
	"billing-service/pkg/mailer"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting billing service")

	// Load configuration
	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Connect to database
	dbConnStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	dbPool, err := pgxpool.New(context.Background(), dbConnStr)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("connected to database",
		zap.String("database", cfg.Database.DBName))

	// Redis (webhook dedupe fast path)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var deduper *cache.Deduper
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis unavailable, webhook dedupe falls back to database only",
			zap.Error(err))
	} else {
		deduper = cache.NewDeduper(rdb, 24*time.Hour)
		logger.Info("connected to redis")
	}

	// Initialize repositories
	walletRepo := repository.NewWalletRepository(dbPool)
	txRepo := repository.NewTransactionRepository(dbPool)
	subRepo := repository.NewSubscriptionRepository(dbPool)
	wdRepo := repository.NewWithdrawalRepository(dbPool)
	logRepo := repository.NewPaymentLogRepository(dbPool)

	// Initialize gateway and collaborators
	gateway := razorpay.NewClient(cfg.Gateway, logger)
	rates := exchange.DefaultTable()
	directory := client.NewDirectoryClient(
		cfg.Directory.BaseURL,
		cfg.Directory.APIKey,
		cfg.Directory.APISecret,
		logger,
	)

	var mail mailer.Sender = mailer.Noop{}
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPSender(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
			cfg.SMTP.From,
			logger,
		)
	}

	// Initialize usecases
	orderUC := usecase.NewOrderUsecase(gateway, rates, subRepo, cfg, logger)
	settlementUC := usecase.NewSettlementUsecase(walletRepo, txRepo, subRepo, cfg.Gateway.KeySecret, logger)
	webhookUC := usecase.NewWebhookUsecase(logRepo, subRepo, walletRepo, txRepo, deduper, cfg.Gateway.WebhookSecret, logger)
	transferUC := usecase.NewTransferUsecase(walletRepo, txRepo, wdRepo, directory, mail, cfg.Withdrawal, logger)

	// Initialize handlers
	orderHandler := handler.NewOrderHandler(orderUC, logger)
	settlementHandler := handler.NewSettlementHandler(settlementUC, logger)
	webhookHandler := handler.NewWebhookHandler(webhookUC, logger)
	walletHandler := handler.NewWalletHandler(walletRepo, txRepo, subRepo, wdRepo, transferUC, logger)

	// Setup routes
	r := router.SetupRoutes(orderHandler, settlementHandler, webhookHandler, walletHandler, cfg.Server.ServiceToken, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("billing service started successfully",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
