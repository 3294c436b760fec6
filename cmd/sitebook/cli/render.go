package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sitebook/sitebook/internal/period"
	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/reports"
	"github.com/sitebook/sitebook/internal/window"
)

// Generator produces a report and its files.
type Generator interface {
	Generate(ctx context.Context, req reports.Request) (reports.Document, []reports.File, error)
}

// GeneratorFactory builds a generator reading from the given source.
type GeneratorFactory func(source reports.SnapshotSource) (Generator, error)

// RenderOptions selects a report rendered from a JSON document file.
type RenderOptions struct {
	Input   string
	OutDir  string
	Request reports.Request
}

// ParseRenderArgs reads the flags of the render command.
func ParseRenderArgs(args []string, stderr io.Writer) (RenderOptions, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.String("kind", "", "report kind: lookahead, activity, cashflow or detail")
	input := fs.String("input", "", "JSON file holding an array of development documents")
	out := fs.String("out", ".", "directory receiving the generated files")
	format := fs.String("format", "pdf", "comma separated formats: pdf, xlsx, csv or both")
	preset := fs.String("preset", "all", "cash-flow range: all, year:YYYY, last6 or last12")
	from := fs.String("from", "", "cash-flow start month YYYY-MM")
	to := fs.String("to", "", "cash-flow end month YYYY-MM")
	exVAT := fs.Bool("exvat", false, "show cash-flow values excluding VAT")
	development := fs.String("development", "", "development id for the detail report")
	if err := fs.Parse(args); err != nil {
		return RenderOptions{}, err
	}

	if strings.TrimSpace(*input) == "" {
		return RenderOptions{}, errors.New("render: -input is required")
	}
	k := reports.Kind(strings.ToLower(strings.TrimSpace(*kind)))
	switch k {
	case reports.KindLookahead, reports.KindActivity, reports.KindCashflow:
	case reports.KindDetail:
		if strings.TrimSpace(*development) == "" {
			return RenderOptions{}, errors.New("render: -development is required for the detail report")
		}
	default:
		return RenderOptions{}, fmt.Errorf("render: %w: %q", reports.ErrUnknownKind, *kind)
	}
	formats, err := reports.ParseFormats(*format)
	if err != nil {
		return RenderOptions{}, fmt.Errorf("render: %w", err)
	}
	req := reports.Request{Kind: k, Formats: formats, ExVAT: *exVAT, DevelopmentID: *development}
	if *from != "" || *to != "" {
		for _, v := range []string{*from, *to} {
			if v == "" {
				continue
			}
			if key, ok := period.ParseKey(v); !ok || key.Granularity != period.Month {
				return RenderOptions{}, fmt.Errorf("render: invalid month %q, expected YYYY-MM", v)
			}
		}
		req.Range = window.Custom(*from, *to)
	} else if req.Range, err = window.ParsePreset(*preset); err != nil {
		return RenderOptions{}, fmt.Errorf("render: %w", err)
	}
	return RenderOptions{Input: *input, OutDir: *out, Request: req}, nil
}

// Render generates the report from the input file and writes every file to OutDir.
func Render(ctx context.Context, factory GeneratorFactory, opts RenderOptions) ([]string, error) {
	raw, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("render: read input: %w", err)
	}
	docs, err := portfolio.DecodeDocuments(raw)
	if err != nil {
		return nil, err
	}
	gen, err := factory(portfolio.StaticSource{Docs: docs})
	if err != nil {
		return nil, err
	}
	_, files, err := gen.Generate(ctx, opts.Request)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("render: output dir: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(opts.OutDir, filepath.Base(f.Name))
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return nil, fmt.Errorf("render: write %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
