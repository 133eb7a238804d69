// Package export renders stored comparison runs as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-compare/internal/store"
)

const (
	RunsSheet  = "Runs"
	PagesSheet = "Pages"
)

var runHeaders = []string{
	"Run ID",
	"Identifier",
	"File 1",
	"File 2",
	"Mode",
	"Strategy",
	"Status",
	"Pages",
	"Page Count 1",
	"Page Count 2",
	"Mismatched Pages",
	"Started At",
	"Duration (ms)",
	"Error",
}

var pageHeaders = []string{"Run ID", "Identifier", "Page", "Matched", "Differing Pixels", "Image"}

// Service produces XLSX bytes for the run history.
type Service struct {
	runs   store.RunRepository
	logger *slog.Logger
}

func NewService(runs store.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// ExportRunsXLSX lists the runs matching f, loads their page verdicts and
// returns the workbook.
func (s *Service) ExportRunsXLSX(ctx context.Context, f store.ListFilter) ([]byte, error) {
	start := time.Now()

	runs, err := s.runs.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	full := make([]*store.Run, 0, len(runs))
	for _, r := range runs {
		withPages, err := s.runs.Get(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("load run %s: %w", r.ID, err)
		}
		full = append(full, withPages)
	}

	buf, err := WriteRuns(full)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(full),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// WriteRuns builds the workbook: one row per run on the Runs sheet and one
// row per recorded page on the Pages sheet.
func WriteRuns(runs []*store.Run) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", RunsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(PagesSheet); err != nil {
		return nil, err
	}
	runsIndex, _ := f.GetSheetIndex(RunsSheet)
	f.SetActiveSheet(runsIndex)

	writeRow(f, RunsSheet, 1, headerRow(runHeaders))
	writeRow(f, PagesSheet, 1, headerRow(pageHeaders))

	row, pageRow := 2, 2
	for _, r := range runs {
		writeRow(f, RunsSheet, row, []any{
			r.ID.String(),
			r.Identifier,
			r.File1,
			r.File2,
			string(r.Mode),
			string(r.Strategy),
			string(r.Status),
			pageSpan(r.StartPage, r.EndPage),
			r.PageCount1,
			r.PageCount2,
			r.MismatchedPages,
			r.StartedAt.Format(time.RFC3339),
			r.Duration.Milliseconds(),
			truncate(r.ErrorMessage, 140),
		})
		row++

		for _, p := range r.Pages {
			writeRow(f, PagesSheet, pageRow, []any{
				r.ID.String(),
				r.Identifier,
				p.Page,
				yesNo(p.Matched),
				p.Differing,
				p.Image,
			})
			pageRow++
		}
	}

	_ = f.SetColWidth(RunsSheet, "A", "A", 38) // run id
	_ = f.SetColWidth(RunsSheet, "B", "B", 22)
	_ = f.SetColWidth(RunsSheet, "C", "D", 48) // paths
	_ = f.SetColWidth(RunsSheet, "L", "L", 22)
	_ = f.SetColWidth(RunsSheet, "N", "N", 48)
	_ = f.SetColWidth(PagesSheet, "A", "A", 38)
	_ = f.SetColWidth(PagesSheet, "F", "F", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func headerRow(h []string) []any {
	out := make([]any, len(h))
	for i, v := range h {
		out[i] = v
	}
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func pageSpan(start, end int) string {
	switch {
	case start < 1 || end < start:
		return ""
	case start == end:
		return fmt.Sprint(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
