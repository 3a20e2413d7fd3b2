package services

import (
	"context"
	"image"
	"sync"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/attendancesys/config"
	"github.com/camden-git/attendancesys/database"
	"github.com/camden-git/attendancesys/gallery"
	"github.com/camden-git/attendancesys/media"
	"github.com/camden-git/attendancesys/models"
	"github.com/camden-git/attendancesys/realtime"
	"github.com/camden-git/attendancesys/recognition"
	"github.com/camden-git/attendancesys/repository"
	"github.com/camden-git/attendancesys/workers"
)

var ctx = context.Background()

const testDate = "2024-03-01"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(config.DriverSQLite, ":memory:", logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedStudents(t *testing.T, db *gorm.DB, students ...models.Student) {
	t.Helper()
	repo := repository.NewStudentRepository(db)
	for i := range students {
		if _, err := repo.InsertIfAbsent(ctx, &students[i]); err != nil {
			t.Fatalf("failed to seed student %s: %v", students[i].StudentID, err)
		}
	}
}

type recordedEvents struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordedEvents) Broadcast(e realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordedCaptures struct {
	mu   sync.Mutex
	jobs []workers.CaptureJob
}

func (r *recordedCaptures) Enqueue(job workers.CaptureJob) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return true
}

// fixedExtractor returns the same embeddings for every image
func fixedExtractor(embeddings ...[]float32) media.Extractor {
	return media.ExtractorFunc(func(ctx context.Context, img image.Image) ([][]float32, error) {
		return embeddings, nil
	})
}

var (
	aliceEmbedding = []float32{1, 0, 0}
	bobEmbedding   = []float32{0, 1, 0}
	carolEmbedding = []float32{0, 0, 1}
)

func testGallery(t *testing.T) *gallery.Gallery {
	t.Helper()
	g, err := gallery.New([]gallery.Entry{
		{Label: "Alice_1", Embedding: aliceEmbedding},
		{Label: "Bob_2", Embedding: bobEmbedding},
	})
	if err != nil {
		t.Fatalf("failed to build gallery: %v", err)
	}
	return g
}

type attendanceFixture struct {
	db       *gorm.DB
	service  *AttendanceService
	events   *recordedEvents
	captures *recordedCaptures
}

func newAttendanceFixture(t *testing.T, extractor media.Extractor) *attendanceFixture {
	t.Helper()
	db := newTestDB(t)
	seedStudents(t, db,
		models.Student{StudentID: "1", Name: "Alice"},
		models.Student{StudentID: "2", Name: "Bob"},
	)

	events := &recordedEvents{}
	captures := &recordedCaptures{}
	matcher := recognition.NewMatcher(testGallery(t), recognition.DefaultTolerance, recognition.EuclideanDistance)
	svc := NewAttendanceService(
		repository.NewStudentRepository(db),
		repository.NewAttendanceRepository(db),
		matcher,
		extractor,
		AttendanceServiceConfig{
			MaxImageDimension: 1600,
			Today:             func() string { return testDate },
			Events:            events,
			Captures:          captures,
		},
		zap.NewNop(),
	)
	return &attendanceFixture{db: db, service: svc, events: events, captures: captures}
}

func present(labels ...string) recognition.PresentSet {
	set := recognition.PresentSet{}
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

func statusByID(report []ReportEntry) map[string]models.AttendanceStatus {
	out := make(map[string]models.AttendanceStatus, len(report))
	for _, e := range report {
		out[e.ID] = e.Status
	}
	return out
}
