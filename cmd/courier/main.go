package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cardloop/card-courier/internal/api"
	"github.com/cardloop/card-courier/internal/assetstore"
	"github.com/cardloop/card-courier/internal/botclient"
	"github.com/cardloop/card-courier/internal/config"
	"github.com/cardloop/card-courier/internal/db"
	"github.com/cardloop/card-courier/internal/metrics"
	"github.com/cardloop/card-courier/internal/queue"
	"github.com/cardloop/card-courier/internal/ratelimiter"
	"github.com/cardloop/card-courier/internal/repository"
	"github.com/cardloop/card-courier/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, "migrations"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := queue.New(cfg.QueueSize)
	metrics.RegisterQueueDepth(reg, q.Depth)
	repo := repository.NewPgCardRepository(pool)

	s3Client, err := assetstore.NewS3Client(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create S3 client", zap.Error(err))
	}
	assets := assetstore.NewS3Store(s3Client, cfg.S3Bucket)

	bot := botclient.NewHTTPClient(cfg.BotBaseURL, cfg.BotToken, cfg.BotTimeout)
	limiter := ratelimiter.New(cfg.RateLimit)

	// ---- delivery pipeline ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onDelivered, onFailed := m.WorkerHooks()
	pool2 := worker.NewPool(
		worker.PoolConfig{
			Workers:         cfg.Workers,
			FileBaseURL:     cfg.FileBaseURL,
			DeliveryTimeout: cfg.DeliveryTimeout,
		},
		q, repo, assets, bot, limiter, logger,
		worker.Hooks{OnDelivered: onDelivered, OnFailed: onFailed},
	)
	pool2.Start(workerCtx)

	onTick, onTickError := m.SchedulerHooks()
	scheduler := worker.NewSchedulerWorker(repo, q, cfg.TickInterval, logger, onTick, onTickError)
	go scheduler.Run(workerCtx)

	// ---- operational HTTP server ----
	router := api.NewRouter(q, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop serving health/metrics.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the scheduler and signal workers to take no new jobs.
	cancelWorkers()

	// 3. Wait for in-flight deliveries to finish their current job.
	pool2.Wait()

	logger.Info("courier stopped cleanly")
}
