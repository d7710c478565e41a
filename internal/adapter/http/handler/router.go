package handler

import (
	"net/http"

	"agri-market-engine/internal/adapter/http/middleware"
	"agri-market-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	OrderSvc       ports.OrderService
	EscrowSvc      ports.EscrowService
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	identity := middleware.Identity(deps.TokenSvc, deps.Logger)
	admin := middleware.RequireRole(middleware.RoleAdmin)

	walletHandler := NewWalletHandler(deps.LedgerSvc)
	orderHandler := NewOrderHandler(deps.OrderSvc)
	escrowHandler := NewEscrowHandler(deps.EscrowSvc, deps.LedgerSvc)

	v1 := r.Group("/api/v1", identity)

	wallets := v1.Group("/wallets")
	{
		wallets.GET("/me", walletHandler.GetMyWallet)
		wallets.POST("/me/deposit", walletHandler.Deposit)
		wallets.POST("/me/withdraw", walletHandler.Withdraw)
		wallets.GET("/me/transactions", walletHandler.ListTransactions)
		wallets.GET("/me/dashboard", walletHandler.GetDashboard)
		wallets.GET("/me/limits", walletHandler.GetLimits)
		wallets.GET("/me/escrows", escrowHandler.ListMyEscrows)
		wallets.PUT("/:id/limits", admin, walletHandler.UpdateLimits)
	}

	orders := v1.Group("/orders")
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PATCH("/:id/status", orderHandler.UpdateStatus)
		orders.GET("/:id/escrow", escrowHandler.GetOrderEscrow)
	}

	escrows := v1.Group("/escrows", admin)
	{
		escrows.POST("/:id/release", escrowHandler.Release)
		escrows.POST("/:id/refund", escrowHandler.Refund)
	}

	return r
}

// HealthCheck pings every registered dependency and reports per-dependency
// status. Any failure degrades the endpoint to 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
