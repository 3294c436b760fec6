package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/sitebook/sitebook/internal/reports"
)

// ContentTypeCSV is the MIME type of CSV exports.
const ContentTypeCSV = "text/csv; charset=utf-8"

// Renderer produces PDF bytes for a document.
type Renderer interface {
	Render(ctx context.Context, doc reports.Document) ([]byte, error)
}

// Emitter implements reports.Emitter over the PDF, XLSX and CSV writers.
type Emitter struct {
	pdf    Renderer
	logger *slog.Logger
}

// NewEmitter constructs an Emitter. A nil pdf renderer disables PDF output.
func NewEmitter(pdf Renderer, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{pdf: pdf, logger: logger}
}

// Emit renders every requested format. All formats succeed or none are returned.
func (e *Emitter) Emit(ctx context.Context, doc reports.Document, formats []reports.Format) ([]reports.File, error) {
	files := make([]reports.File, 0, len(formats))
	for _, format := range formats {
		file, err := e.emitOne(ctx, doc, format)
		if err != nil {
			e.logger.Warn("emit report", slog.String("format", string(format)), slog.String("filename", doc.Filename), slog.Any("error", err))
			return nil, fmt.Errorf("%w: %s: %w", reports.ErrEmitFailed, format, err)
		}
		files = append(files, file)
	}
	return files, nil
}

func (e *Emitter) emitOne(ctx context.Context, doc reports.Document, format reports.Format) (reports.File, error) {
	name := doc.Filename + "." + string(format)
	switch format {
	case reports.FormatPDF:
		if e.pdf == nil {
			return reports.File{}, fmt.Errorf("pdf renderer not configured")
		}
		data, err := e.pdf.Render(ctx, doc)
		if err != nil {
			return reports.File{}, err
		}
		return reports.File{Name: name, ContentType: ContentTypePDF, Data: data}, nil
	case reports.FormatXLSX:
		data, _, err := WriteXLSX(doc)
		if err != nil {
			return reports.File{}, err
		}
		return reports.File{Name: name, ContentType: ContentTypeXLSX, Data: data}, nil
	case reports.FormatCSV:
		buf := &bytes.Buffer{}
		if err := WriteCSV(buf, doc); err != nil {
			return reports.File{}, err
		}
		return reports.File{Name: name, ContentType: ContentTypeCSV, Data: buf.Bytes()}, nil
	}
	return reports.File{}, fmt.Errorf("%w: %q", reports.ErrUnknownFormat, format)
}
