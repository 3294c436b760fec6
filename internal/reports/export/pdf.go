package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"github.com/sitebook/sitebook/internal/reports"
	"github.com/sitebook/sitebook/report"
	"github.com/sitebook/sitebook/web"
)

// ContentTypePDF is the MIME type of rendered reports.
const ContentTypePDF = "application/pdf"

// PDFClient exposes the subset of the Gotenberg client used by the renderer.
type PDFClient interface {
	RenderPage(ctx context.Context, html string, page report.PageOptions) ([]byte, error)
}

// PDFRenderer transforms documents into PDF via html/template and Gotenberg.
type PDFRenderer struct {
	tpl    *template.Template
	css    template.CSS
	client PDFClient
}

// NewPDFRenderer parses the report template and wires the PDF client.
func NewPDFRenderer(client PDFClient) (*PDFRenderer, error) {
	if client == nil {
		return nil, fmt.Errorf("pdf renderer: pdf client required")
	}
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(dateLayout + " 15:04")
		},
	}
	tpl, err := template.New("document.html").Funcs(funcMap).ParseFS(web.Templates, "templates/reports/document.html")
	if err != nil {
		return nil, err
	}
	css, err := fs.ReadFile(web.Static, "static/css/report.css")
	if err != nil {
		return nil, err
	}
	return &PDFRenderer{tpl: tpl, css: template.CSS(css), client: client}, nil
}

type htmlCell struct {
	Text  string
	Right bool
	Span  int
}

type htmlRow struct {
	Style reports.RowStyle
	Cells []htmlCell
}

type htmlBlock struct {
	Kind    reports.BlockKind
	Title   string
	Columns []reports.Column
	Rows    []htmlRow
}

type htmlPage struct {
	Doc    reports.Document
	CSS    template.CSS
	Blocks []htmlBlock
}

// HTML executes the template for doc.
func (r *PDFRenderer) HTML(doc reports.Document) (string, error) {
	if r == nil || r.tpl == nil {
		return "", fmt.Errorf("pdf renderer not initialised")
	}
	page := htmlPage{Doc: doc, CSS: r.css}
	for _, block := range doc.Blocks {
		hb, err := toHTMLBlock(block, doc.Currency)
		if err != nil {
			return "", err
		}
		page.Blocks = append(page.Blocks, hb)
	}
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render produces the PDF bytes. Wide tables switch the page to landscape.
func (r *PDFRenderer) Render(ctx context.Context, doc reports.Document) ([]byte, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}
	page := report.A4
	for _, block := range doc.Blocks {
		if block.Table != nil && len(block.Table.Columns) > 8 {
			page.Landscape = true
		}
	}
	return r.client.RenderPage(ctx, html, page)
}

func toHTMLBlock(block reports.Block, currency string) (htmlBlock, error) {
	hb := htmlBlock{Kind: block.Kind, Title: block.Title}
	if block.Table == nil {
		return hb, nil
	}
	table := block.Table
	values, err := table.Evaluate()
	if err != nil {
		return hb, err
	}
	hb.Columns = table.Columns
	width := len(table.Columns)
	for i, row := range table.Rows {
		hr := htmlRow{Style: row.Style}
		for j, cell := range row.Cells {
			if j >= width {
				break
			}
			hr.Cells = append(hr.Cells, htmlCell{
				Text:  displayText(cell, values.At(i, j), currency),
				Right: table.Columns[j].Align == reports.AlignRight,
				Span:  1,
			})
		}
		if n := len(hr.Cells); n < width {
			if n == 0 {
				hr.Cells = append(hr.Cells, htmlCell{Span: width})
			} else {
				hr.Cells[n-1].Span = width - n + 1
			}
		}
		hb.Rows = append(hb.Rows, hr)
	}
	return hb, nil
}
