package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/sitebook/sitebook/internal/reports"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
	lines        int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.lines++
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// WriteCSV serialises every table of the document. Each table is preceded by
// its title and header; formula cells are written as "=SUM(...)" text that
// resolves against the CSV's own line numbers.
func WriteCSV(w io.Writer, doc reports.Document) error {
	s := newCSVStreamer(w)
	if err := s.writeRow([]string{sanitiseCSV(doc.Title), sanitiseCSV(doc.Subtitle)}); err != nil {
		return err
	}
	for _, block := range doc.Blocks {
		title := block.Title
		if title == "" {
			title = string(block.Kind)
		}
		if err := s.writeRow([]string{sanitiseCSV(title)}); err != nil {
			return err
		}
		if block.Table == nil {
			continue
		}
		header := make([]string, len(block.Table.Columns))
		for i, col := range block.Table.Columns {
			header[i] = sanitiseCSV(col.Title)
		}
		if err := s.writeRow(header); err != nil {
			return err
		}
		origin := reports.Origin{Row: s.lines + 1, Col: 1}
		for _, row := range block.Table.Rows {
			record := make([]string, len(block.Table.Columns))
			for i, cell := range row.Cells {
				if i >= len(record) {
					break
				}
				text, err := rawText(cell, origin, doc.Currency)
				if err != nil {
					return err
				}
				record[i] = text
			}
			if err := s.writeRow(record); err != nil {
				return err
			}
		}
	}
	return s.Flush()
}
