// Package export renders a job's verification rows as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/verifyhq/scorecard-verifier/internal/repository"
	"github.com/verifyhq/scorecard-verifier/internal/verify"
)

// Service is a tiny façade over the result store that produces XLSX bytes.
type Service struct {
	results repository.ResultRepository
	logger  *slog.Logger
}

func NewService(results repository.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{results: results, logger: logger}
}

// ExportJobXLSX returns a workbook with one row per verified applicant, in
// the stable flat column order (id, error, then input/extracted/status
// triples per compared field).
func (s *Service) ExportJobXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	start := time.Now()

	rows, err := s.results.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Verification"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := verify.Headers()
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, row := range rows {
		for colIdx, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			_ = f.SetCellValue(sheet, cell, row[h])
		}
	}

	// Widen id and the name columns for readability.
	_ = f.SetColWidth(sheet, "A", "B", 16)
	_ = f.SetColWidth(sheet, "C", "H", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", jobID.String(),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
