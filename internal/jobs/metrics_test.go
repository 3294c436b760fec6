package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("report:digest").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, metrics.Track("report:digest").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("report:digest", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("report:digest", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("report:digest")))
}

func TestAddReportFiles(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.AddReportFiles("lookahead", "pdf", 2)
	metrics.AddReportFiles("lookahead", "pdf", 0)
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.files.WithLabelValues("lookahead", "pdf")))

	var nilMetrics *Metrics
	nilMetrics.AddReportFiles("lookahead", "pdf", 1)
	require.NoError(t, nilMetrics.Track("noop").End(nil))
}
