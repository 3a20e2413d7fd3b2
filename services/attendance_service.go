package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/camden-git/attendancesys/media"
	"github.com/camden-git/attendancesys/models"
	"github.com/camden-git/attendancesys/realtime"
	"github.com/camden-git/attendancesys/recognition"
	"github.com/camden-git/attendancesys/repository"
	"github.com/camden-git/attendancesys/workers"
)

// EventPublisher receives attendance change notifications.
type EventPublisher interface {
	Broadcast(event realtime.Event)
}

// CaptureQueue accepts uploaded photos for archiving.
type CaptureQueue interface {
	Enqueue(job workers.CaptureJob) bool
}

// ReportEntry is one roster student's status in a reconciliation report.
type ReportEntry struct {
	ID     string                  `json:"id"`
	Name   string                  `json:"name"`
	Status models.AttendanceStatus `json:"status"`
}

// MarkResult is the response to one uploaded class photo.
type MarkResult struct {
	Date          string        `json:"date"`
	FacesDetected int           `json:"faces_detected"`
	Report        []ReportEntry `json:"report"`
}

// ReportRow is one persisted attendance record for a day.
type ReportRow struct {
	LogID     uint                    `json:"log_id"`
	StudentID string                  `json:"student_id"`
	Name      string                  `json:"name"`
	Date      string                  `json:"date"`
	Status    models.AttendanceStatus `json:"status"`
}

type AttendanceServiceConfig struct {
	MaxImageDimension int
	// Today returns the current calendar day as YYYY-MM-DD.
	Today func() string
	// Events and Captures are optional.
	Events   EventPublisher
	Captures CaptureQueue
}

// AttendanceService turns class photos into per-day attendance records.
type AttendanceService struct {
	students   repository.StudentRepositoryInterface
	attendance repository.AttendanceRepositoryInterface
	matcher    *recognition.Matcher
	extractor  media.Extractor
	cfg        AttendanceServiceConfig
	logger     *zap.Logger

	// one reconciliation at a time
	mu sync.Mutex
}

func NewAttendanceService(
	students repository.StudentRepositoryInterface,
	attendance repository.AttendanceRepositoryInterface,
	matcher *recognition.Matcher,
	extractor media.Extractor,
	cfg AttendanceServiceConfig,
	logger *zap.Logger,
) *AttendanceService {
	return &AttendanceService{
		students:   students,
		attendance: attendance,
		matcher:    matcher,
		extractor:  extractor,
		cfg:        cfg,
		logger:     logger.Named("attendance"),
	}
}

func (s *AttendanceService) publish(eventType, date string, data any) {
	if s.cfg.Events != nil {
		s.cfg.Events.Broadcast(realtime.Event{Type: eventType, Date: date, Data: data})
	}
}

// Today returns the day new photos are reconciled into.
func (s *AttendanceService) Today() string {
	return s.cfg.Today()
}

// MarkAttendance detects and matches every face in the photo and reconciles
// the result into today's attendance.
func (s *AttendanceService) MarkAttendance(ctx context.Context, data []byte) (*MarkResult, error) {
	if len(data) == 0 {
		return nil, invalidInput("No image file provided")
	}

	img, err := media.DecodeImage(data, s.cfg.MaxImageDimension)
	if err != nil {
		return nil, err
	}

	embeddings, err := s.extractor.Extract(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("face extraction failed: %w", err)
	}

	present, results := s.matcher.MatchAll(embeddings)
	for _, r := range results {
		s.logger.Debug("face matched",
			zap.String("label", r.Label),
			zap.Float64("distance", r.Distance),
			zap.Bool("matched", r.Matched),
		)
	}

	date := s.cfg.Today()
	if takenAt, ok := media.TakenAt(data); ok && takenAt.Format(dateLayout) != date {
		s.logger.Info("photo was taken on a different day than it is reconciled into",
			zap.String("taken", takenAt.Format(dateLayout)),
			zap.String("date", date),
		)
	}

	report, err := s.Reconcile(ctx, present, date)
	if err != nil {
		return nil, err
	}

	if s.cfg.Captures != nil {
		s.cfg.Captures.Enqueue(workers.CaptureJob{Date: date, Data: data})
	}

	return &MarkResult{Date: date, FacesDetected: len(embeddings), Report: report}, nil
}

// Reconcile ensures every roster student has a record for date and returns
// the full roster report. A student already recorded for the day keeps the
// stored status; the first reconciliation of the day wins.
func (s *AttendanceService) Reconcile(ctx context.Context, present recognition.PresentSet, date string) ([]ReportEntry, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	records := make([]models.AttendanceLog, 0, len(roster))
	for _, student := range roster {
		status := models.StatusAbsent
		if present.Has(student.Label()) {
			status = models.StatusPresent
		}
		records = append(records, models.AttendanceLog{
			StudentID: student.StudentID,
			Name:      student.Name,
			Date:      date,
			Status:    status,
		})
	}

	results, err := s.attendance.EnsureRecords(ctx, records)
	if err != nil {
		return nil, storageError(err)
	}

	report := make([]ReportEntry, 0, len(results))
	created := 0
	for i, res := range results {
		if res.Created {
			created++
		} else if res.Record.Status == models.StatusAbsent && records[i].Status == models.StatusPresent {
			s.logger.Info("student recognized after being logged absent, keeping absent",
				zap.String("student_id", res.Record.StudentID),
				zap.String("date", date),
				zap.Uint("log_id", res.Record.LogID),
			)
		}
		report = append(report, ReportEntry{
			ID:     res.Record.StudentID,
			Name:   res.Record.Name,
			Status: res.Record.Status,
		})
	}

	s.logger.Info("attendance reconciled",
		zap.String("date", date),
		zap.Int("roster", len(roster)),
		zap.Int("present_labels", len(present)),
		zap.Int("created", created),
	)
	if created > 0 {
		s.publish(realtime.EventAttendanceReconciled, date, report)
	}
	return report, nil
}

// GetReport lists the persisted records for date, today when empty.
func (s *AttendanceService) GetReport(ctx context.Context, date string) ([]ReportRow, error) {
	if date == "" {
		date = s.cfg.Today()
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	logs, err := s.attendance.ListByDate(ctx, date)
	if err != nil {
		return nil, storageError(err)
	}

	rows := make([]ReportRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, ReportRow{
			LogID:     l.LogID,
			StudentID: l.StudentID,
			Name:      l.Name,
			Date:      l.Date,
			Status:    l.Status,
		})
	}
	return rows, nil
}

// UpdateAttendance overwrites the status of one record. Concurrent updates
// are last writer wins.
func (s *AttendanceService) UpdateAttendance(ctx context.Context, logID uint, status models.AttendanceStatus) (*models.AttendanceLog, error) {
	if logID == 0 {
		return nil, invalidInput("log_id is required")
	}
	if !status.Valid() {
		return nil, invalidInput("status must be %q or %q", models.StatusPresent, models.StatusAbsent)
	}

	if err := s.attendance.UpdateStatus(ctx, logID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: attendance log %d", ErrNotFound, logID)
		}
		return nil, storageError(err)
	}

	rec, err := s.attendance.GetByID(ctx, logID)
	if err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("attendance updated",
		zap.Uint("log_id", logID),
		zap.String("student_id", rec.StudentID),
		zap.String("date", rec.Date),
		zap.String("status", string(status)),
	)
	s.publish(realtime.EventAttendanceUpdated, rec.Date, rec)
	return rec, nil
}
