package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/facette/natsort"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camden-git/attendancesys/models"
)

// StudentRepository handles database operations for the roster
type StudentRepository struct {
	DB *gorm.DB
}

// Ensure StudentRepository implements StudentRepositoryInterface
var _ StudentRepositoryInterface = (*StudentRepository)(nil)

// NewStudentRepository creates a new instance of StudentRepository
func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

// InsertIfAbsent inserts the student unless a row with the same student_id
// exists. Existing rows are left untouched. Reports whether a row was created.
func (r *StudentRepository) InsertIfAbsent(ctx context.Context, student *models.Student) (bool, error) {
	now := time.Now().Unix()
	if student.CreatedAt == 0 {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	result := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "student_id"}}, DoNothing: true}).
		Create(student)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert student %s: %w", student.StudentID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetByID retrieves a student by student_id
func (r *StudentRepository) GetByID(ctx context.Context, studentID string) (*models.Student, error) {
	var student models.Student
	err := r.DB.WithContext(ctx).Where("student_id = ?", studentID).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get student %s: %w", studentID, err)
	}
	return &student, nil
}

// UpdateName renames a student. Existing attendance rows keep the name they were logged with.
func (r *StudentRepository) UpdateName(ctx context.Context, studentID, name string) error {
	result := r.DB.WithContext(ctx).Model(&models.Student{}).
		Where("student_id = ?", studentID).
		Updates(map[string]interface{}{
			"name":       name,
			"updated_at": time.Now().Unix(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update student %s: %w", studentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAll retrieves every student in natural student_id order
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := r.DB.WithContext(ctx).Order("student_id ASC").Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	sort.SliceStable(students, func(i, j int) bool {
		return natsort.Compare(students[i].StudentID, students[j].StudentID)
	})
	return students, nil
}
