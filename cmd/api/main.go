package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klover-backend/config"
	"klover-backend/internal/adapter/gateway"
	httpHandler "klover-backend/internal/adapter/http/handler"
	pgStorage "klover-backend/internal/adapter/storage/postgres"
	redisStorage "klover-backend/internal/adapter/storage/redis"
	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/internal/service"
	"klover-backend/pkg/logger"

	"github.com/rs/zerolog"
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
		Msg("Starting Klover Reward Engine")

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
	// Payout destinations are encrypted before they reach the database
	cipher, err := service.NewAESCipher(cfg.Database.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database encryption key")
	}

	accountRepo := pgStorage.NewAccountRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool, cipher)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	adLimiter := redisStorage.NewAdLimiter(rdb)
	leaderboard := redisStorage.NewLeaderboard(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Derive reward parameters from config (already validated at load)
	dropTable, _ := cfg.Rewards.DropTable()
	chestPayouts, _ := cfg.Rewards.ChestPayouts()
	chestPrices, _ := cfg.Rewards.ChestPrices()
	rouletteTable, _ := cfg.Rewards.RouletteTable()
	missions, _ := cfg.Rewards.MissionCatalog()
	referralRate, _ := cfg.Rewards.ReferralRateDecimal()
	levelBonus, _ := cfg.Rewards.LevelBonusDecimal()
	minimums, _ := cfg.Withdrawal.ParsedMinimums()

	currencies := make(map[domain.WithdrawalMethod]domain.Currency, len(minimums))
	for method := range minimums {
		if cur, ok := config.MethodCurrency(method); ok {
			currencies[method] = cur
		}
	}

	// Initialize payout gateway
	providers := make(map[domain.Currency]gateway.ProviderConfig, len(cfg.Withdrawal.Providers))
	for currency, p := range cfg.Withdrawal.Providers {
		providers[domain.Currency(currency)] = gateway.ProviderConfig{
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
		}
	}
	payoutGateway := gateway.NewPayoutClient(providers, &http.Client{Timeout: cfg.Withdrawal.PayoutTimeout}, log)

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	selector := service.NewSelector()
	ledger := service.NewLedger(txRepo, log)
	curve := service.LevelCurve{BaseXP: cfg.Rewards.LevelBaseXP, Growth: cfg.Rewards.LevelGrowth}
	progression := service.NewProgression(ledger, curve, levelBonus, log)
	referral := service.NewReferral(ledger, referralRate, log)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, tokenSvc, leaderboard, cfg.Telegram.BotToken, cfg.Telegram.InitDataMaxAge, log)
	rewardSvc := service.NewRewardService(
		accountRepo,
		txRepo,
		transactor,
		adLimiter,
		leaderboard,
		selector,
		ledger,
		progression,
		referral,
		service.RewardParams{
			AdRewardXP:     cfg.Rewards.AdXP,
			DailyAdCap:     cfg.Rewards.DailyAdCap,
			ChestDropTable: dropTable,
			ChestPayouts:   chestPayouts,
			RouletteTable:  rouletteTable,
			Missions:       missions,
			ChestPricesPTS: chestPrices,
		},
		log,
	)
	withdrawalSvc := service.NewWithdrawalService(
		accountRepo,
		txRepo,
		transactor,
		payoutGateway,
		ledger,
		service.WithdrawalPolicy{Currencies: currencies, Minimums: minimums},
		log,
	)
	rankingSvc := service.NewRankingService(accountRepo, leaderboard, log)
	reportingSvc := service.NewReportingService(txRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		RewardSvc:      rewardSvc,
		WithdrawalSvc:  withdrawalSvc,
		RankingSvc:     rankingSvc,
		ReportingSvc:   reportingSvc,
		AccountRepo:    accountRepo,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// Re-drive withdrawals left PENDING by a crash between reserve and settle.
	resumeCtx, stopResume := context.WithCancel(ctx)
	defer stopResume()
	go resumePendingLoop(resumeCtx, withdrawalSvc, cfg.Withdrawal.ResumeInterval, cfg.Withdrawal.ResumeOlderThan, log)

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

	stopResume()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// resumePendingLoop periodically settles withdrawals stuck in PENDING.
func resumePendingLoop(ctx context.Context, svc ports.WithdrawalService, interval, olderThan time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settled, err := svc.ResumePending(ctx, olderThan)
			if err != nil {
				log.Error().Err(err).Msg("pending withdrawal sweep failed")
				continue
			}
			if settled > 0 {
				log.Info().Int("settled", settled).Msg("pending withdrawals settled")
			}
		}
	}
}
