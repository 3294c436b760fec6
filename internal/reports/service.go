package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/window"
)

var (
	// ErrSnapshotUnavailable wraps failures of the snapshot source.
	ErrSnapshotUnavailable = errors.New("reports: snapshot unavailable")
	// ErrEmitFailed wraps failures of the document emitter.
	ErrEmitFailed = errors.New("reports: emit failed")
	// ErrDevelopmentNotFound is returned for unknown development ids.
	ErrDevelopmentNotFound = portfolio.ErrDevelopmentNotFound
	// ErrUnknownKind is returned for unsupported report kinds.
	ErrUnknownKind = errors.New("reports: unknown report kind")
	// ErrUnknownFormat is returned for unsupported output formats.
	ErrUnknownFormat = errors.New("reports: unknown format")
)

// Format is an output file type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormats reads a comma separated list of pdf, xlsx, csv or both
// (pdf and xlsx). An empty string selects pdf.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	add := func(f Format) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "pdf":
			add(FormatPDF)
		case "xlsx", "excel":
			add(FormatXLSX)
		case "csv":
			add(FormatCSV)
		case "both":
			add(FormatPDF)
			add(FormatXLSX)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, part)
		}
	}
	if len(out) == 0 {
		out = []Format{FormatPDF}
	}
	return out, nil
}

// File is one emitted artefact.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// SnapshotSource supplies validated portfolio snapshots.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (portfolio.Snapshot, error)
}

// Emitter materialises a document in the requested formats.
type Emitter interface {
	Emit(ctx context.Context, doc Document, formats []Format) ([]File, error)
}

// MetricsRecorder observes report generation.
type MetricsRecorder interface {
	ObserveReport(kind, status string, elapsed time.Duration)
}

// Request selects a report and its parameters.
type Request struct {
	Kind          Kind
	Formats       []Format
	Range         window.Range
	ExVAT         bool
	DevelopmentID string
}

// Service loads a snapshot, builds a document and hands it to the emitter.
type Service struct {
	source   SnapshotSource
	emitter  Emitter
	logger   *slog.Logger
	metrics  MetricsRecorder
	now      func() time.Time
	currency string
}

// NewService constructs a Service instance.
func NewService(source SnapshotSource, emitter Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, emitter: emitter, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches a metrics recorder.
func (s *Service) WithMetrics(m MetricsRecorder) { s.metrics = m }

// WithCurrency sets the document currency used when developments disagree.
func (s *Service) WithCurrency(code string) { s.currency = code }

// Build loads the current snapshot and builds the requested document.
func (s *Service) Build(ctx context.Context, req Request) (Document, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	return s.BuildFrom(snap, req)
}

// BuildFrom builds the requested document from an already loaded snapshot.
func (s *Service) BuildFrom(snap portfolio.Snapshot, req Request) (Document, error) {
	s.logger.Debug("building report", slog.String("kind", string(req.Kind)), slog.Int("developments", len(snap.Developments)), slog.Int("units", snap.UnitCount()))
	opts := Options{
		Now:           s.now(),
		Range:         req.Range,
		ExVAT:         req.ExVAT,
		DevelopmentID: req.DevelopmentID,
		Currency:      s.currency,
	}
	switch req.Kind {
	case KindLookahead:
		return BuildLookahead(snap, opts), nil
	case KindActivity:
		return BuildActivity(snap, opts), nil
	case KindCashflow:
		return BuildCashflow(snap, opts), nil
	case KindDetail:
		return BuildDetail(snap, opts)
	}
	return Document{}, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
}

// Generate builds the document completely before emitting it. A failed emit
// never returns partial files.
func (s *Service) Generate(ctx context.Context, req Request) (Document, []File, error) {
	start := time.Now()
	doc, files, err := s.generate(ctx, req)
	elapsed := time.Since(start)
	status := "success"
	attrs := []any{
		slog.String("kind", string(req.Kind)),
		slog.Any("formats", req.Formats),
		slog.Duration("duration", elapsed),
	}
	if req.DevelopmentID != "" {
		attrs = append(attrs, slog.String("development_id", req.DevelopmentID))
	}
	if err != nil {
		status = "failure"
		s.logger.Error("report generation failed", append(attrs, slog.Any("error", err))...)
	} else {
		s.logger.Info("report generated", append(attrs, slog.Int("files", len(files)))...)
	}
	if s.metrics != nil {
		s.metrics.ObserveReport(string(req.Kind), status, elapsed)
	}
	return doc, files, err
}

func (s *Service) generate(ctx context.Context, req Request) (Document, []File, error) {
	formats := req.Formats
	if len(formats) == 0 {
		formats = []Format{FormatPDF}
	}
	doc, err := s.Build(ctx, req)
	if err != nil {
		return Document{}, nil, err
	}
	if s.emitter == nil {
		return doc, nil, fmt.Errorf("%w: no emitter configured", ErrEmitFailed)
	}
	files, err := s.emitter.Emit(ctx, doc, formats)
	if err != nil {
		if errors.Is(err, ErrEmitFailed) {
			return doc, nil, err
		}
		return doc, nil, fmt.Errorf("%w: %w", ErrEmitFailed, err)
	}
	return doc, files, nil
}
