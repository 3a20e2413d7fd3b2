package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/facette/natsort"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camden-git/attendancesys/models"
)

// EnsureResult is the persisted row for one requested record and whether
// this call created it.
type EnsureResult struct {
	Record  models.AttendanceLog
	Created bool
}

// AttendanceRepository handles database operations for attendance logs
type AttendanceRepository struct {
	DB *gorm.DB
}

// Ensure AttendanceRepository implements AttendanceRepositoryInterface
var _ AttendanceRepositoryInterface = (*AttendanceRepository)(nil)

// NewAttendanceRepository creates a new instance of AttendanceRepository
func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{DB: db}
}

// EnsureRecords inserts each record unless one already exists for its
// (student_id, date). A conflicting insert is a no-op and the existing row is
// returned instead, so a status already logged for the day is never
// overwritten. All records are handled in one transaction.
func (r *AttendanceRepository) EnsureRecords(ctx context.Context, records []models.AttendanceLog) ([]EnsureResult, error) {
	results := make([]EnsureResult, 0, len(records))

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			rec.LogID = 0
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}},
				DoNothing: true,
			}).Create(&rec)
			if res.Error != nil {
				return fmt.Errorf("failed to insert attendance for %s on %s: %w", rec.StudentID, rec.Date, res.Error)
			}
			if res.RowsAffected > 0 {
				results = append(results, EnsureResult{Record: rec, Created: true})
				continue
			}

			var existing models.AttendanceLog
			if err := tx.Where("student_id = ? AND date = ?", rec.StudentID, rec.Date).First(&existing).Error; err != nil {
				return fmt.Errorf("failed to load existing attendance for %s on %s: %w", rec.StudentID, rec.Date, err)
			}
			results = append(results, EnsureResult{Record: existing, Created: false})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListByDate retrieves all attendance rows for one date in natural student_id order
func (r *AttendanceRepository) ListByDate(ctx context.Context, date string) ([]models.AttendanceLog, error) {
	var logs []models.AttendanceLog
	err := r.DB.WithContext(ctx).Where("date = ?", date).Order("student_id ASC").Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for %s: %w", date, err)
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return natsort.Compare(logs[i].StudentID, logs[j].StudentID)
	})
	return logs, nil
}

// GetByID retrieves an attendance row by log_id
func (r *AttendanceRepository) GetByID(ctx context.Context, logID uint) (*models.AttendanceLog, error) {
	var rec models.AttendanceLog
	err := r.DB.WithContext(ctx).First(&rec, "log_id = ?", logID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get attendance log %d: %w", logID, err)
	}
	return &rec, nil
}

// UpdateStatus overwrites the status of one row. Last writer wins.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, logID uint, status models.AttendanceStatus) error {
	result := r.DB.WithContext(ctx).Model(&models.AttendanceLog{}).
		Where("log_id = ?", logID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update attendance log %d: %w", logID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
