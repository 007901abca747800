package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/trademantra/swingtrader-go/internal/api"
	"github.com/trademantra/swingtrader-go/internal/api/handlers"
	"github.com/trademantra/swingtrader-go/internal/cache"
	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/database"
	"github.com/trademantra/swingtrader-go/internal/middleware"
	"github.com/trademantra/swingtrader-go/internal/services"
	"github.com/trademantra/swingtrader-go/internal/telemetry"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, perr := logrus.ParseLevel(cfg.LogLevel); perr == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	candleRepo := database.NewCandleRepository(db.Pool)
	tradeRepo := database.NewTradeRepository(db.Pool)
	marketCache := cache.NewMarketCache(redis.Client, candleRepo, candleRepo, logger)

	notifier := services.NewTelegramNotifier(cfg.Telegram, logger)
	ledger := services.NewLedger(tradeRepo, logger)
	simulator := services.NewPaperSimulator(cfg.Paper, ledger, tradeRepo, marketCache, notifier, logger)

	portfolio, err := simulator.CreatePortfolio(ctx, "default")
	if err != nil {
		logger.Fatalf("Failed to create paper portfolio: %v", err)
	}

	analyzer := services.NewMultiTimeframeService(marketCache, cfg.Strategy, logger)
	builder := services.NewSignalBuilder(marketCache, analyzer, cfg.Strategy, logger)
	analysis := services.NewMarketAnalysisService(marketCache, logger)

	gate := services.NewRiskGate(cfg.Risk, cfg.Strategy.AccountSize, nil)
	execRouter := services.NewExecutionRouter(gate, nil, simulator, tradeRepo, notifier, nil, cfg.Risk, cfg.Strategy.AccountSize, logger)
	execRouter.EnablePaperMode(portfolio.ID)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(otelgin.Middleware(telemetry.ServiceName))

	api.SetupRoutes(router, api.Handlers{
		Health:    handlers.NewHealthHandler(db, redis),
		Market:    handlers.NewMarketHandler(marketCache, analysis, logger),
		Signals:   handlers.NewSignalHandler(builder, execRouter, tradeRepo, logger),
		Portfolio: handlers.NewPortfolioHandler(simulator, tradeRepo, tradeRepo, logger),
		Auth:      middleware.NewAuthMiddleware(cfg.Security.JWTSecret),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Tracer shutdown failed")
	}
	logger.Info("Server exited")
}
