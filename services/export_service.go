package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	sq "github.com/Masterminds/squirrel"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/camden-git/attendancesys/database"
)

const exportSheet = "Attendance"

var exportHeader = []string{"name", "student_id", "status", "date"}

// ExportService renders one day's attendance as a downloadable file.
type ExportService struct {
	db      database.Querier
	builder sq.StatementBuilderType
	logger  *zap.Logger
}

func NewExportService(db database.Querier, builder sq.StatementBuilderType, logger *zap.Logger) *ExportService {
	return &ExportService{db: db, builder: builder, logger: logger.Named("export")}
}

func (s *ExportService) rows(ctx context.Context, date string) ([]database.AttendanceRow, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := database.ListAttendanceByDate(s.db, s.builder, date)
	if err != nil {
		return nil, storageError(err)
	}
	return rows, nil
}

// WriteCSV writes a header line followed by one line per record of date.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, date string) error {
	rows, err := s.rows(ctx, date)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Name, r.StudentID, r.Status, r.Date}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	s.logger.Debug("exported csv", zap.String("date", date), zap.Int("rows", len(rows)))
	return nil
}

// WriteXLSX writes the same columns as WriteCSV into a single worksheet.
func (s *ExportService) WriteXLSX(ctx context.Context, w io.Writer, date string) error {
	rows, err := s.rows(ctx, date)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Name, r.StudentID, r.Status, r.Date}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write xlsx row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}

	s.logger.Debug("exported xlsx", zap.String("date", date), zap.Int("rows", len(rows)))
	return nil
}

// Filename returns the attachment name for an export of date.
func Filename(date, ext string) string {
	return fmt.Sprintf("attendance_%s.%s", date, ext)
}
