package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/sitebook/sitebook/internal/platform/httpx"
)

// DefaultConcurrency is used when WorkerConfig.Concurrency is not positive.
const DefaultConcurrency = 2

// Worker runs report tasks and the digest schedule.
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	scheduler   *asynq.Scheduler
	logger      *slog.Logger
	concurrency int
	taskTypes   []string
}

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker validates the handler and cron tables and builds the server.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	mux := asynq.NewServeMux()
	seen := make(map[string]struct{}, len(cfg.Handlers))
	types := make([]string, 0, len(cfg.Handlers))
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			return nil, errors.New("worker: handler needs a task type and a func")
		}
		if _, dup := seen[h.Type]; dup {
			return nil, fmt.Errorf("worker: duplicate handler for %q", h.Type)
		}
		seen[h.Type] = struct{}{}
		types = append(types, h.Type)
		mux.HandleFunc(h.Type, h.Handler)
	}
	sort.Strings(types)

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				return nil, errors.New("worker: cron entry needs a spec and a task")
			}
			if _, ok := seen[entry.Task.Type()]; !ok {
				return nil, fmt.Errorf("worker: cron task %q has no handler", entry.Task.Type())
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, fmt.Errorf("worker: register %q: %w", entry.Spec, err)
			}
		}
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn("report task failed", slog.String("type", task.Type()), slog.Any("error", err))
		}),
	})

	return &Worker{
		server:      srv,
		mux:         mux,
		scheduler:   scheduler,
		logger:      logger,
		concurrency: concurrency,
		taskTypes:   types,
	}, nil
}

// Run processes tasks until ctx is cancelled or the server stops.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
		defer w.scheduler.Shutdown()
	}
	w.logger.Info("worker started",
		slog.Int("concurrency", w.concurrency),
		slog.Any("tasks", w.taskTypes),
		slog.Bool("scheduler", w.scheduler != nil))

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits digest runs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueDigest enqueues a digest run, stamping RequestedAt when unset.
func (c *Client) EnqueueDigest(ctx context.Context, payload DigestPayload) (*asynq.TaskInfo, error) {
	if payload.RequestedAt.IsZero() {
		payload.RequestedAt = time.Now().UTC()
	}
	task, err := NewDigestTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Handler reports digest queue depth over HTTP.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs the queue health handler. A nil inspector reports an empty queue.
func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Active  int    `json:"active,omitempty"`
	Retry   int    `json:"retry,omitempty"`
	Failed  int    `json:"failed,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := queueHealth{Queue: QueueDefault}
	if h.inspector != nil {
		info, err := h.inspector.GetQueueInfo(QueueDefault)
		if err != nil {
			h.logger.Warn("jobs health", slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "report queue could not be inspected")
			return
		}
		if info != nil {
			status = queueHealth{
				Queue:   info.Queue,
				Pending: info.Pending,
				Active:  info.Active,
				Retry:   info.Retry,
				Failed:  info.Failed,
			}
		}
	}
	httpx.JSON(w, http.StatusOK, status)
}
