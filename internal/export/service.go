package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ashwini-cargo/internal/entity"
	"github.com/joseph-ayodele/ashwini-cargo/internal/repository"
)

const sheet = "LR Scans"

// Service produces XLSX bytes for the scan history.
type Service struct {
	scans  repository.ScanRepository
	loc    *time.Location
	logger *slog.Logger
}

func NewService(scans repository.ScanRepository, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{scans: scans, loc: loc, logger: logger}
}

// ExportScansXLSX returns a workbook of scans created in [from, to).
// A zero bound leaves that side of the window open.
func (s *Service) ExportScansXLSX(ctx context.Context, from, to time.Time) ([]byte, error) {
	start := time.Now()

	scans, err := s.scans.List(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"LR No",
		"Vehicle",
		"Payment",
		"Freight",
		"Consignee",
		"Material",
		"Status",
		"Needs Review",
		"Scanned At",
		"File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, sc := range scans {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		writeRow(write, sc, s.loc)
	}

	_ = f.SetColWidth(sheet, "A", "B", 14)
	_ = f.SetColWidth(sheet, "C", "D", 12)
	_ = f.SetColWidth(sheet, "E", "F", 32)
	_ = f.SetColWidth(sheet, "G", "H", 12)
	_ = f.SetColWidth(sheet, "I", "I", 20)
	_ = f.SetColWidth(sheet, "J", "J", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(scans),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(write func(int, any), sc entity.Scan, loc *time.Location) {
	r := sc.Record
	write(1, deref(r.LRNumber))
	write(2, deref(r.VehicleNo))
	write(3, string(r.PaymentStatus))
	if r.TotalFreight != nil {
		write(4, *r.TotalFreight)
	}
	write(5, deref(r.ConsigneeName))
	write(6, deref(r.Material))
	write(7, string(sc.Status))
	write(8, yesNo(sc.NeedsReview))
	write(9, sc.CreatedAt.In(loc).Format("2006-01-02 15:04"))
	write(10, sc.Filename)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
