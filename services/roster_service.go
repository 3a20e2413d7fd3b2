package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/camden-git/attendancesys/gallery"
	"github.com/camden-git/attendancesys/models"
	"github.com/camden-git/attendancesys/repository"
)

// SyncResult counts what a roster sync did with each distinct gallery label.
type SyncResult struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Skipped  int `json:"skipped"`
}

// RosterService keeps the student roster in step with the gallery and
// allows editing it independently.
type RosterService struct {
	students repository.StudentRepositoryInterface
	logger   *zap.Logger
}

func NewRosterService(students repository.StudentRepositoryInterface, logger *zap.Logger) *RosterService {
	return &RosterService{students: students, logger: logger.Named("roster")}
}

// SyncFromGallery inserts a student for every well-formed gallery label not
// yet on the roster. Existing students keep their stored name.
func (s *RosterService) SyncFromGallery(ctx context.Context, g *gallery.Gallery) (SyncResult, error) {
	var result SyncResult
	for _, label := range g.Labels() {
		id, err := gallery.ParseLabel(label)
		if err != nil {
			s.logger.Warn("skipping malformed gallery label", zap.String("label", label), zap.Error(err))
			result.Skipped++
			continue
		}

		created, err := s.students.InsertIfAbsent(ctx, &models.Student{StudentID: id.StudentID, Name: id.Name})
		if err != nil {
			return result, storageError(err)
		}
		if created {
			result.Created++
		} else {
			result.Existing++
		}
	}

	s.logger.Info("roster synced from gallery",
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// List returns the roster in natural student ID order.
func (s *RosterService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

func validateStudentFields(studentID, name string) error {
	if studentID == "" {
		return invalidInput("student_id is required")
	}
	if strings.Contains(studentID, gallery.LabelSeparator) {
		return invalidInput("student_id must not contain %q", gallery.LabelSeparator)
	}
	if name == "" {
		return invalidInput("name is required")
	}
	return nil
}

// Create adds a student to the roster. ErrConflict if the ID is taken.
func (s *RosterService) Create(ctx context.Context, studentID, name string) (*models.Student, error) {
	studentID, name = strings.TrimSpace(studentID), strings.TrimSpace(name)
	if err := validateStudentFields(studentID, name); err != nil {
		return nil, err
	}

	student := &models.Student{StudentID: studentID, Name: name}
	created, err := s.students.InsertIfAbsent(ctx, student)
	if err != nil {
		return nil, storageError(err)
	}
	if !created {
		return nil, fmt.Errorf("%w: student %s", ErrConflict, studentID)
	}
	s.logger.Info("student created", zap.String("student_id", studentID))
	return student, nil
}

// Rename changes a student's display name. Past attendance rows keep the
// name they were logged with.
func (s *RosterService) Rename(ctx context.Context, studentID, name string) (*models.Student, error) {
	studentID, name = strings.TrimSpace(studentID), strings.TrimSpace(name)
	if err := validateStudentFields(studentID, name); err != nil {
		return nil, err
	}

	if err := s.students.UpdateName(ctx, studentID, name); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: student %s", ErrNotFound, studentID)
		}
		return nil, storageError(err)
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, storageError(err)
	}
	return student, nil
}
