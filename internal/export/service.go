// Package export produces XLSX workbooks from processed documents.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	docs    repository.DocumentRepository
	results repository.ResultRepository
	logger  *slog.Logger
}

func NewService(docs repository.DocumentRepository, results repository.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, results: results, logger: logger}
}

// ExportDocumentsXLSX returns a workbook with one row per extracted field
// across all processed documents, newest document first. Documents that
// produced no fields still get one row so they are visible in the export.
func (s *Service) ExportDocumentsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	docs, err := s.docs.List(ctx, repository.DocumentFilter{
		Status: constants.DocumentStatusProcessed,
		Limit:  200,
	})
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// Drop the default sheet excelize creates.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Document",
		"Type",
		"Type Confidence",
		"Processed At",
		"Field",
		"Value",
		"Field Confidence",
		"Normalized",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range docs {
		fields, err := s.results.ListFields(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("query fields for %s: %w", d.ID, err)
		}

		docType := ""
		if d.DocumentType != nil {
			docType = string(*d.DocumentType)
		}
		var confidence any
		if d.StructuredResult != nil {
			confidence = d.StructuredResult.Confidence
		}
		processedAt := ""
		if d.ProcessedAt != nil {
			processedAt = d.ProcessedAt.UTC().Format("2006-01-02 15:04:05")
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if len(fields) == 0 {
			write(1, d.Filename)
			write(2, docType)
			write(3, confidence)
			write(4, processedAt)
			row++
			continue
		}

		for _, fld := range fields {
			write(1, d.Filename)
			write(2, docType)
			write(3, confidence)
			write(4, processedAt)
			write(5, fld.FieldName)
			write(6, truncate(fld.FieldValue, 140))
			write(7, fld.Confidence)
			if fld.Normalized != nil {
				write(8, fmt.Sprintf("%.2f %s", fld.Normalized.Value, fld.Normalized.Currency))
			}
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 32) // filename
	_ = f.SetColWidth(sheet, "B", "B", 12) // type
	_ = f.SetColWidth(sheet, "C", "C", 14) // confidence
	_ = f.SetColWidth(sheet, "D", "D", 20) // processed at
	_ = f.SetColWidth(sheet, "E", "E", 22) // field name
	_ = f.SetColWidth(sheet, "F", "F", 48) // value
	_ = f.SetColWidth(sheet, "G", "G", 16) // field confidence
	_ = f.SetColWidth(sheet, "H", "H", 16) // normalized

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(docs),
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
