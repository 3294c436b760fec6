package http

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/sitebook/sitebook/internal/period"
	"github.com/sitebook/sitebook/internal/platform/httpx"
	"github.com/sitebook/sitebook/internal/reports"
	"github.com/sitebook/sitebook/internal/window"
)

// Service is the subset of reports.Service used by the handler.
type Service interface {
	Build(ctx context.Context, req reports.Request) (reports.Document, error)
	Generate(ctx context.Context, req reports.Request) (reports.Document, []reports.File, error)
}

// Invalidator drops cached snapshots.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler wires the report download endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	cache     Invalidator
	rateLimit func(http.Handler) http.Handler
	now       func() time.Time
}

// NewHandler constructs the report handler. requestsPerMinute limits downloads
// per client IP; zero disables the limit.
func NewHandler(logger *slog.Logger, service Service, cache Invalidator, requestsPerMinute int) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("reports handler: service required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	limiter := func(next http.Handler) http.Handler { return next }
	if requestsPerMinute > 0 {
		limiter = httprate.Limit(requestsPerMinute, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				return "ip:" + r.RemoteAddr, nil
			}
			return "ip:" + host, nil
		}))
	}
	return &Handler{logger: logger, service: service, cache: cache, rateLimit: limiter, now: time.Now}, nil
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/lookahead", h.download(reports.KindLookahead))
		r.Get("/activity", h.download(reports.KindActivity))
		r.Get("/cashflow", h.download(reports.KindCashflow))
		r.Get("/developments/{id}", h.download(reports.KindDetail))
	})
	r.Get("/developments/{id}/preview", h.preview)
	r.Post("/cache/bump", h.bump)
}

func (h *Handler) download(kind reports.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRequest(r, kind)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Report Request", err.Error())
			return
		}
		exportID := uuid.NewString()
		key := h.flightKey(req)
		val, err, shared := singleflightGenerate(r.Context(), key, func(ctx context.Context) (interface{}, error) {
			doc, files, err := h.service.Generate(ctx, req)
			if err != nil {
				return nil, err
			}
			return generated{doc: doc, files: files}, nil
		})
		if err != nil {
			h.logger.Warn("report download failed", slog.String("export_id", exportID), slog.String("kind", string(kind)), slog.Any("error", err))
			respondError(w, err)
			return
		}
		out := val.(generated)
		if shared {
			h.logger.Debug("report shared with concurrent request", slog.String("export_id", exportID), slog.String("key", key))
		}
		w.Header().Set("X-Export-ID", exportID)
		if err := writeFiles(w, out.doc.Filename, out.files); err != nil {
			h.logger.Error("write report response", slog.String("export_id", exportID), slog.Any("error", err))
		}
	}
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r, reports.KindDetail)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Report Request", err.Error())
		return
	}
	doc, err := h.service.Build(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) bump(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "no cache configured"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("snapshot cache bump failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Cache Unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generated struct {
	doc   reports.Document
	files []reports.File
}

// flightKey identifies identical requests for the current day.
func (h *Handler) flightKey(req reports.Request) string {
	formats := make([]string, len(req.Formats))
	for i, f := range req.Formats {
		formats[i] = string(f)
	}
	return strings.Join([]string{
		string(req.Kind),
		strings.Join(formats, "+"),
		string(req.Range.Kind), strconv.Itoa(req.Range.Year), req.Range.From, req.Range.To,
		strconv.FormatBool(req.ExVAT),
		req.DevelopmentID,
		h.now().UTC().Format("2006-01-02"),
	}, "|")
}

func parseRequest(r *http.Request, kind reports.Kind) (reports.Request, error) {
	q := r.URL.Query()
	formats, err := reports.ParseFormats(q.Get("format"))
	if err != nil {
		return reports.Request{}, err
	}
	req := reports.Request{Kind: kind, Formats: formats, DevelopmentID: chi.URLParam(r, "id")}
	if kind != reports.KindCashflow {
		return req, nil
	}
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from != "" || to != "" {
		for _, v := range []string{from, to} {
			if v == "" {
				continue
			}
			if k, ok := period.ParseKey(v); !ok || k.Granularity != period.Month {
				return reports.Request{}, fmt.Errorf("invalid month %q, expected YYYY-MM", v)
			}
		}
		req.Range = window.Custom(from, to)
	} else if req.Range, err = window.ParsePreset(q.Get("preset")); err != nil {
		return reports.Request{}, err
	}
	if raw := q.Get("exvat"); raw != "" {
		if req.ExVAT, err = strconv.ParseBool(raw); err != nil {
			return reports.Request{}, fmt.Errorf("invalid exvat %q", raw)
		}
	}
	return req, nil
}

// writeFiles sends one file as a download or several as a zip archive.
func writeFiles(w http.ResponseWriter, base string, files []reports.File) error {
	if len(files) == 1 {
		f := files[0]
		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(f.Data)
		return err
	}
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		part, err := zw.Create(f.Name)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrDevelopmentNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, reports.ErrUnknownFormat), errors.Is(err, reports.ErrUnknownKind):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, reports.ErrSnapshotUnavailable):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUnavailable, err))
	case errors.Is(err, reports.ErrEmitFailed):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUpstream, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrTimeout, err))
	default:
		httpx.RespondError(w, err)
	}
}
