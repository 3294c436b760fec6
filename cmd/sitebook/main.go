package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sitebook/sitebook/cmd/sitebook/cli"
	"github.com/sitebook/sitebook/internal/app"
	"github.com/sitebook/sitebook/internal/observability"
	"github.com/sitebook/sitebook/internal/platform/cache"
	"github.com/sitebook/sitebook/internal/platform/db"
	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/reports"
	reportshttp "github.com/sitebook/sitebook/internal/reports/http"
	"github.com/sitebook/sitebook/jobs"
	"github.com/sitebook/sitebook/report"
)

const usage = `usage:
  sitebook                          start the HTTP server
  sitebook jobs trigger digest      enqueue a report digest run
  sitebook jobs stats               show default queue statistics
  sitebook render -kind K -input F  render a report from a JSON document file`

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

	args := os.Args[1:]
	if len(args) == 0 {
		if err := serve(ctx, stop, cfg, logger); err != nil {
			logger.Error("server", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	switch args[0] {
	case "jobs":
		err = runJobs(ctx, cfg, args[1:])
	case "render":
		err = runRender(ctx, cfg, logger, args[1:])
	case "help", "-h", "--help":
		fmt.Println(usage)
		return
	default:
		err = fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := portfolio.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	redisClient, redisErr := cache.New(ctx, cfg.RedisAddr)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	snapshotCache := portfolio.NewCache(redisClient, cfg.SnapshotCacheTTL).WithLogger(logger)
	if redisErr != nil {
		logger.Warn("redis unavailable, snapshots load uncached", slog.Any("error", redisErr))
		snapshotCache = portfolio.NewCache(nil, cfg.SnapshotCacheTTL)
	}
	source := portfolio.NewCachedSource(repo, snapshotCache)

	metrics := observability.NewMetrics()
	service, pdfClient, err := app.NewReportService(cfg, logger, source, metrics)
	if err != nil {
		return fmt.Errorf("init report service: %w", err)
	}
	reportsHandler, err := reportshttp.NewHandler(logger, service, source, cfg.ReportRateLimit)
	if err != nil {
		return fmt.Errorf("init reports handler: %w", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ReportsHandler: reportsHandler,
		PDFHandler:     report.NewHandler(pdfClient, logger),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = jobsCLI.Close() }()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs trigger: job name required")
		}
		var formats []string
		if len(args) > 2 {
			formats = strings.Split(args[2], ",")
		}
		info, err := jobsCLI.Trigger(ctx, args[1], formats)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		return fmt.Errorf("jobs: unknown action %q", args[0])
	}
	return nil
}

func runRender(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	opts, err := cli.ParseRenderArgs(args, os.Stderr)
	if err != nil {
		return err
	}
	factory := func(source reports.SnapshotSource) (cli.Generator, error) {
		svc, _, err := app.NewReportService(cfg, logger, source, nil)
		return svc, err
	}
	paths, err := cli.Render(ctx, factory, opts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
