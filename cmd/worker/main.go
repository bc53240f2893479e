package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"retailhub/backend/internal/app"
	"retailhub/backend/internal/config"
	"retailhub/backend/internal/jobs"
	"retailhub/backend/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Must(logger.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})
	defer func() { _ = log.Sync() }()

	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required to run the worker")
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := app.Build(startCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()

	cron, err := schedule(cfg)
	if err != nil {
		log.Fatal("build schedule", zap.Error(err))
	}
	handlers := jobs.NewHandlers(deps.Service, log, deps.Metrics)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   app.RedisOpts(cfg),
		Logger:      log,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers.Registrations(),
		Cron:        cron,
	})
	if err != nil {
		log.Fatal("worker setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("retailhub worker started", zap.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", zap.Error(err))
		return
	}
	log.Info("worker stopped")
}

// schedule registers the all-shop reconcile and low-stock scans. An empty
// cron expression disables that job.
func schedule(cfg config.Config) ([]jobs.CronRegistration, error) {
	var out []jobs.CronRegistration
	if cfg.ReconcileCron != "" {
		task, err := jobs.NewLedgerReconcileTask(0)
		if err != nil {
			return nil, err
		}
		out = append(out, jobs.CronRegistration{Spec: cfg.ReconcileCron, Task: task})
	}
	if cfg.LowStockCron != "" {
		task, err := jobs.NewLowStockScanTask(0)
		if err != nil {
			return nil, err
		}
		out = append(out, jobs.CronRegistration{Spec: cfg.LowStockCron, Task: task})
	}
	return out, nil
}
