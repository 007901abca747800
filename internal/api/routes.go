package api

import (
	"github.com/gin-gonic/gin"

	"github.com/trademantra/swingtrader-go/internal/api/handlers"
	"github.com/trademantra/swingtrader-go/internal/middleware"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Health    *handlers.HealthHandler
	Market    *handlers.MarketHandler
	Signals   *handlers.SignalHandler
	Portfolio *handlers.PortfolioHandler
	Auth      *middleware.AuthMiddleware
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/health", h.Health.Check)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/candles/:symbol", h.Market.GetCandles)
		v1.GET("/analysis/:symbol", h.Market.GetAnalysis)

		signals := v1.Group("/signals")
		{
			signals.POST("/generate", h.Signals.Generate)
			signals.GET("/pending", h.Signals.ListPending)
			// Approval moves real state; it is the one guarded route.
			signals.POST("/:id/approve", h.Auth.RequireAuth(), h.Signals.Approve)
		}

		portfolio := v1.Group("/portfolio")
		{
			portfolio.GET("/:id", h.Portfolio.GetState)
			portfolio.GET("/:id/positions", h.Portfolio.GetPositions)
			portfolio.GET("/:id/ledger", h.Portfolio.GetLedger)
			portfolio.POST("/:id/reconcile", h.Portfolio.Reconcile)
		}
	}
}
