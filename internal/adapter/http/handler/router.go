package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	AuditSvc       ports.AuditService   // nil = audit logging disabled
	Metrics        metrics.Registry     // nil = /metrics not mounted
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		r.GET("/metrics", Metrics(deps.Metrics))
	}

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

	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.ReportingSvc)
	wallets := v1.Group("/wallets")
	{
		wallets.GET("", rl("read"), walletHandler.List)
		wallets.POST("/charge", rl("charge"), walletHandler.Charge)
	}

	paymentHandler := NewPaymentHandler(deps.WalletSvc)
	v1.POST("/payments", rl("payments"), paymentHandler.Pay)

	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)
	v1.GET("/transactions", rl("read"), dashboardHandler.ListTransactions)
	v1.GET("/dashboard/stats", rl("read"), dashboardHandler.GetStats)

	adminHandler := NewAdminHandler(deps.WalletSvc, deps.ReportingSvc)
	admin := v1.Group("/admin/users/:user_id", middleware.RequireAdmin(), rl("admin"))
	{
		admin.POST("/adjust", adminHandler.Adjust)
		admin.GET("/reconcile", adminHandler.Reconcile)
	}

	return r
}
