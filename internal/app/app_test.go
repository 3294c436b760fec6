package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitebook/sitebook/internal/observability"
	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/reports"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.SnapshotCacheTTL)
	require.Equal(t, "0 6 * * 1", cfg.DigestCron)
	require.Equal(t, "EUR", cfg.DefaultCurrency)
	require.Equal(t, 30, cfg.ReportRateLimit)
	require.Equal(t, 2, cfg.DigestConcurrency)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("SNAPSHOT_CACHE_TTL", "-1s")
	t.Setenv("DEFAULT_CURRENCY", "EURO")
	t.Setenv("DIGEST_CONCURRENCY", "0")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "SNAPSHOT_CACHE_TTL")
	require.ErrorContains(t, err, "DEFAULT_CURRENCY")
	require.ErrorContains(t, err, "DIGEST_CONCURRENCY")
}

func TestRouterServesHealthAndStatic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(RouterParams{Logger: logger, Config: &Config{AppEnv: "test"}, Metrics: observability.NewMetrics()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/report.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sitebook_http_requests_total")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewReportServiceBuildsFromStaticSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{GotenbergURL: "http://127.0.0.1:1", DefaultCurrency: "GBP"}
	svc, client, err := NewReportService(cfg, logger, portfolio.StaticSource{}, nil)
	require.NoError(t, err)
	require.NotNil(t, client)

	doc, err := svc.Build(context.Background(), reports.Request{Kind: reports.KindCashflow})
	require.NoError(t, err)
	require.Equal(t, "GBP", doc.Currency)
}
