package app

import (
	"log/slog"

	"github.com/sitebook/sitebook/internal/reports"
	"github.com/sitebook/sitebook/internal/reports/export"
	"github.com/sitebook/sitebook/report"
)

// NewReportService wires the Gotenberg client, the emitter and the report service.
// A nil metrics recorder disables report metrics.
func NewReportService(cfg *Config, logger *slog.Logger, source reports.SnapshotSource, metrics reports.MetricsRecorder) (*reports.Service, *report.Client, error) {
	client := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	renderer, err := export.NewPDFRenderer(client)
	if err != nil {
		return nil, nil, err
	}
	svc := reports.NewService(source, export.NewEmitter(renderer, logger), logger)
	svc.WithCurrency(cfg.DefaultCurrency)
	if metrics != nil {
		svc.WithMetrics(metrics)
	}
	return svc, client, nil
}
