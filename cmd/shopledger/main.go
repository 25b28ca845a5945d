package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/app"
	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/observability"
	"github.com/shopledger/shopledger/internal/orders"
	"github.com/shopledger/shopledger/internal/platform/cache"
	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/reports"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	idempotencyStore := shared.NewIdempotencyStore(pool)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	catalogHandler := catalog.NewHandler(logger, catalogService)

	stockService := stock.NewService(stock.NewRepository(pool))
	stockHandler := stock.NewHandler(logger, stockService)

	ordersService := orders.NewService(logger, orders.NewRepository(pool), idempotencyStore, reportCache)
	ordersHandler := orders.NewHandler(logger, ordersService)

	reportsService := reports.NewService(logger, reports.NewRepository(pool), reportCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	var tasks app.TaskClient
	if taskClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}); err != nil {
		logger.Warn("task queue unavailable, admin triggers disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Warn("task client close", slog.Any("error", err))
			}
		}()
		tasks = taskClient
	}

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: catalogHandler,
		StockHandler:   stockHandler,
		OrdersHandler:  ordersHandler,
		ReportsHandler: reportsHandler,
		Pool:           pool,
		Metrics:        metrics,
		Tasks:          tasks,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
