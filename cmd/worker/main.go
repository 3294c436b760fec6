package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/sitebook/sitebook/internal/app"
	jobmetrics "github.com/sitebook/sitebook/internal/jobs"
	"github.com/sitebook/sitebook/internal/platform/cache"
	"github.com/sitebook/sitebook/internal/platform/db"
	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	snapshotCache := portfolio.NewCache(redisClient, cfg.SnapshotCacheTTL).WithLogger(logger)
	if err != nil {
		snapshotCache = portfolio.NewCache(nil, cfg.SnapshotCacheTTL)
	}
	source := portfolio.NewCachedSource(portfolio.NewRepository(pool), snapshotCache)
	service, _, err := app.NewReportService(cfg, logger, source, nil)
	if err != nil {
		logger.Error("init report service", slog.Any("error", err))
		os.Exit(1)
	}
	digestJob := jobs.NewDigestJob(jobs.DigestJobConfig{
		Reports:    service,
		StorageDir: cfg.ReportStorageDir,
		Logger:     logger,
		Metrics:    jobmetrics.NewMetrics(nil),
	})

	digestTask, err := jobs.NewDigestTask(jobs.DigestPayload{})
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.DigestConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportDigest, Handler: digestJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DigestCron, Task: digestTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
