package handler

import (
	"klover-backend/internal/adapter/http/middleware"
	redisStore "klover-backend/internal/adapter/storage/redis"
	"klover-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	RewardSvc      ports.RewardService
	WithdrawalSvc  ports.WithdrawalService
	RankingSvc     ports.RankingService
	ReportingSvc   ports.ReportingService
	AccountRepo    ports.AccountRepository
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
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
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc, deps.AccountRepo)
	auth := v1.Group("/auth")
	{
		auth.POST("/telegram", rl("auth_login"), authHandler.Login)
	}

	rankingHandler := NewRankingHandler(deps.RankingSvc)
	v1.GET("/ranking", rl("ranking"), rankingHandler.Top)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	rewardHandler := NewRewardHandler(deps.RewardSvc)
	walletHandler := NewWalletHandler(deps.WithdrawalSvc, deps.RewardSvc, deps.ReportingSvc)

	accounts := v1.Group("/accounts", jwtAuth)
	{
		accounts.GET("/me", rl("rewards"), authHandler.Profile)
	}

	rewards := v1.Group("/rewards", jwtAuth)
	{
		rewards.POST("/ad", rl("rewards"), rewardHandler.WatchAd)
	}

	chests := v1.Group("/chests", jwtAuth)
	{
		chests.POST("/open", rl("rewards"), rewardHandler.OpenChest)
	}

	roulette := v1.Group("/roulette", jwtAuth)
	{
		roulette.POST("/spin", rl("rewards"), rewardHandler.SpinRoulette)
	}

	missions := v1.Group("/missions", jwtAuth)
	{
		missions.POST("/:id/claim", rl("rewards"), rewardHandler.ClaimMission)
	}

	shop := v1.Group("/shop", jwtAuth)
	{
		shop.POST("/chests", rl("rewards"), rewardHandler.PurchaseChest)
	}

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.POST("/withdrawals", rl("withdrawals"), walletHandler.Withdraw)
		wallet.GET("/ledger", rl("wallet"), walletHandler.Ledger)
		wallet.GET("/summary", rl("wallet"), walletHandler.Summary)
	}

	return r
}
