package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitebook/sitebook/internal/portfolio"
)

type stubSource struct {
	snap portfolio.Snapshot
	err  error
}

func (s stubSource) Snapshot(context.Context) (portfolio.Snapshot, error) { return s.snap, s.err }

type stubEmitter struct {
	calls int
	err   error
}

func (s *stubEmitter) Emit(_ context.Context, doc Document, formats []Format) ([]File, error) {
	s.calls++
	if s.err != nil {
		return []File{{Name: "partial"}}, s.err
	}
	files := make([]File, 0, len(formats))
	for _, f := range formats {
		files = append(files, File{Name: doc.Filename + "." + string(f)})
	}
	return files, nil
}

type stubMetrics struct{ statuses []string }

func (s *stubMetrics) ObserveReport(kind, status string, _ time.Duration) {
	s.statuses = append(s.statuses, kind+":"+status)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestService(source SnapshotSource, emitter Emitter) (*Service, *stubMetrics) {
	svc := NewService(source, emitter, quietLogger())
	svc.WithNow(func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) })
	metrics := &stubMetrics{}
	svc.WithMetrics(metrics)
	return svc, metrics
}

func TestServiceGenerate(t *testing.T) {
	emitter := &stubEmitter{}
	svc, metrics := newTestService(stubSource{snap: riversideElmwood()}, emitter)

	doc, files, err := svc.Generate(context.Background(), Request{Kind: KindCashflow, Formats: []Format{FormatPDF, FormatXLSX}})
	require.NoError(t, err)
	require.Equal(t, KindCashflow, doc.Kind)
	require.Len(t, files, 2)
	require.Equal(t, "Cash-Flow-2024-03-01.pdf", files[0].Name)
	require.Equal(t, "Cash-Flow-2024-03-01.xlsx", files[1].Name)

	_, files, err = svc.Generate(context.Background(), Request{Kind: KindDetail, DevelopmentID: "elm"})
	require.NoError(t, err)
	require.Equal(t, []File{{Name: "Elmwood-Report-2024-03-01.pdf"}}, files)
	require.Equal(t, []string{"cashflow:success", "detail:success"}, metrics.statuses)
}

func TestServiceErrors(t *testing.T) {
	boom := errors.New("connection refused")
	emitter := &stubEmitter{}
	svc, metrics := newTestService(stubSource{err: boom}, emitter)
	_, files, err := svc.Generate(context.Background(), Request{Kind: KindLookahead})
	require.ErrorIs(t, err, ErrSnapshotUnavailable)
	require.ErrorIs(t, err, boom)
	require.Nil(t, files)
	require.Zero(t, emitter.calls)
	require.Equal(t, []string{"lookahead:failure"}, metrics.statuses)

	svc, _ = newTestService(stubSource{snap: riversideElmwood()}, emitter)
	_, _, err = svc.Generate(context.Background(), Request{Kind: KindDetail, DevelopmentID: "missing"})
	require.ErrorIs(t, err, ErrDevelopmentNotFound)
	require.ErrorIs(t, err, portfolio.ErrDevelopmentNotFound)
	require.Zero(t, emitter.calls)

	_, _, err = svc.Generate(context.Background(), Request{Kind: "weekly"})
	require.ErrorIs(t, err, ErrUnknownKind)

	failing := &stubEmitter{err: errors.New("gotenberg down")}
	svc, _ = newTestService(stubSource{snap: riversideElmwood()}, failing)
	_, files, err = svc.Generate(context.Background(), Request{Kind: KindActivity})
	require.ErrorIs(t, err, ErrEmitFailed)
	require.Nil(t, files)
	require.Equal(t, 1, failing.calls)
}

func TestParseFormats(t *testing.T) {
	formats, err := ParseFormats("")
	require.NoError(t, err)
	require.Equal(t, []Format{FormatPDF}, formats)

	formats, err = ParseFormats("both")
	require.NoError(t, err)
	require.Equal(t, []Format{FormatPDF, FormatXLSX}, formats)

	formats, err = ParseFormats("csv, XLSX,pdf,xlsx")
	require.NoError(t, err)
	require.Equal(t, []Format{FormatCSV, FormatXLSX, FormatPDF}, formats)

	_, err = ParseFormats("docx")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
