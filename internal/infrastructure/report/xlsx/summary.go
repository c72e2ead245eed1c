package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

const (
	filesSheet   = "Files"
	bucketsSheet = "Buckets"
)

var fileHeaders = []string{
	"#",
	"Filename",
	"Extension",
	"Size (bytes)",
	"Bucket",
	"Extraction",
	"Method",
	"Report",
	"Error",
}

// SummaryWriter renders a batch overview workbook: one row per upload plus
// per-bucket totals.
type SummaryWriter struct{}

func NewSummaryWriter() *SummaryWriter {
	return &SummaryWriter{}
}

func (w *SummaryWriter) WriteSummary(results []domain.FileResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", filesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range fileHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(filesSheet, cell, h)
	}

	row := 2
	for _, r := range results {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(filesSheet, cell, v)
		}
		write(1, r.Index+1)
		write(2, r.Filename)
		write(3, r.Extension)
		write(4, r.Size)
		write(5, string(r.Bucket))
		write(6, string(r.Extraction.Status))
		write(7, r.Extraction.Method)
		write(8, reportState(r.Report))
		write(9, resultError(r))
		row++
	}
	_ = f.SetColWidth(filesSheet, "B", "B", 36)
	_ = f.SetColWidth(filesSheet, "I", "I", 60)

	if _, err := f.NewSheet(bucketsSheet); err != nil {
		return nil, fmt.Errorf("create buckets sheet: %w", err)
	}
	_ = f.SetCellValue(bucketsSheet, "A1", "Bucket")
	_ = f.SetCellValue(bucketsSheet, "B1", "Files")

	batch := domain.Batch{Results: results}
	counts := batch.BucketCounts()
	for i, bucket := range batch.Buckets() {
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("A%d", i+2), string(bucket))
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("B%d", i+2), counts[bucket])
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write summary workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func reportState(report *domain.Report) string {
	switch {
	case report == nil:
		return ""
	case report.Failed:
		return "failed"
	default:
		return "ok"
	}
}

func resultError(r domain.FileResult) string {
	if r.Extraction.Error != "" {
		return r.Extraction.Error
	}
	if r.Report != nil {
		return r.Report.Error
	}
	return ""
}
