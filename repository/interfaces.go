package repository

import (
	"context"

	"github.com/camden-git/attendancesys/models"
)

// StudentRepositoryInterface defines the methods for roster data operations
type StudentRepositoryInterface interface {
	InsertIfAbsent(ctx context.Context, student *models.Student) (bool, error)
	GetByID(ctx context.Context, studentID string) (*models.Student, error)
	UpdateName(ctx context.Context, studentID, name string) error
	ListAll(ctx context.Context) ([]models.Student, error)
}

// AttendanceRepositoryInterface defines the methods for attendance log operations
type AttendanceRepositoryInterface interface {
	EnsureRecords(ctx context.Context, records []models.AttendanceLog) ([]EnsureResult, error)
	ListByDate(ctx context.Context, date string) ([]models.AttendanceLog, error)
	GetByID(ctx context.Context, logID uint) (*models.AttendanceLog, error)
	UpdateStatus(ctx context.Context, logID uint, status models.AttendanceStatus) error
}
