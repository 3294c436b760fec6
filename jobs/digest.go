package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/sitebook/sitebook/internal/jobs"
	"github.com/sitebook/sitebook/internal/reports"
)

// DigestKinds are the reports produced by every digest run.
var DigestKinds = []reports.Kind{reports.KindLookahead, reports.KindActivity}

// ReportGenerator produces a document and its emitted files.
type ReportGenerator interface {
	Generate(ctx context.Context, req reports.Request) (reports.Document, []reports.File, error)
}

// DigestJobConfig wires dependencies required by the digest handler.
type DigestJobConfig struct {
	Reports    ReportGenerator
	StorageDir string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// DigestJob writes the weekly reports to storage.
type DigestJob struct {
	reports    ReportGenerator
	storageDir string
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
	newID      func() string
}

// DigestResult lists what one run wrote.
type DigestResult struct {
	RunID string
	Dir   string
	Paths []string
}

// NewDigestJob constructs a DigestJob handler.
func NewDigestJob(cfg DigestJobConfig) *DigestJob {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DigestJob{
		reports:    cfg.Reports,
		storageDir: cfg.StorageDir,
		logger:     logger,
		metrics:    cfg.Metrics,
		newID:      func() string { return uuid.NewString() },
	}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *DigestJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.reports == nil {
		return errors.New("digest job not configured")
	}
	var payload DigestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode digest payload: %v: %w", err, asynq.SkipRetry)
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run generates every digest report and saves the files under <storage>/<run id>.
// Nothing is written unless all reports were generated.
func (j *DigestJob) Run(ctx context.Context, payload DigestPayload) (result DigestResult, err error) {
	formats, err := reports.ParseFormats(strings.Join(payload.Formats, ","))
	if err != nil {
		return DigestResult{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	runID := payload.RunID
	if runID == "" {
		runID = j.newID()
	}

	tracker := j.metrics.Track(TaskReportDigest)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger.With(slog.String("run_id", runID))
	logger.Info("starting report digest")

	type generated struct {
		kind  reports.Kind
		files []reports.File
	}
	var outputs []generated
	for _, kind := range DigestKinds {
		_, files, genErr := j.reports.Generate(ctx, reports.Request{Kind: kind, Formats: formats})
		if genErr != nil {
			logger.Error("digest report failed", slog.String("kind", string(kind)), slog.Any("error", genErr))
			return DigestResult{}, fmt.Errorf("digest %s: %w", kind, genErr)
		}
		outputs = append(outputs, generated{kind: kind, files: files})
	}

	dir := filepath.Join(j.baseDir(), runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DigestResult{}, fmt.Errorf("digest storage: %w", err)
	}
	result = DigestResult{RunID: runID, Dir: dir}
	for _, out := range outputs {
		for _, file := range out.files {
			path := filepath.Join(dir, filepath.Base(file.Name))
			if err := os.WriteFile(path, file.Data, 0o644); err != nil {
				return DigestResult{}, fmt.Errorf("digest write %s: %w", file.Name, err)
			}
			result.Paths = append(result.Paths, path)
			j.metrics.AddReportFiles(string(out.kind), formatOf(file.Name), 1)
		}
	}
	logger.Info("report digest ready", slog.String("dir", dir), slog.Int("files", len(result.Paths)))
	return result, nil
}

func (j *DigestJob) baseDir() string {
	if strings.TrimSpace(j.storageDir) == "" {
		return filepath.Join(os.TempDir(), "sitebook-reports")
	}
	return j.storageDir
}

func formatOf(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}
