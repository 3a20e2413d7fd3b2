package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/attendancesys/config"
	"github.com/camden-git/attendancesys/database"
	"github.com/camden-git/attendancesys/gallery"
	"github.com/camden-git/attendancesys/media"
	"github.com/camden-git/attendancesys/models"
	"github.com/camden-git/attendancesys/recognition"
	"github.com/camden-git/attendancesys/repository"
	"github.com/camden-git/attendancesys/services"
)

const testDate = "2024-03-01"

type testServer struct {
	db      *gorm.DB
	handler http.Handler
}

// newTestServer builds the full router over an in-memory database with
// Alice_1 and Bob_2 on the roster. The extractor always reports Alice.
func newTestServer(t *testing.T, adminHash string) *testServer {
	t.Helper()

	db, err := database.InitGormDB(config.DriverSQLite, ":memory:", logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	g, err := gallery.New([]gallery.Entry{
		{Label: "Alice_1", Embedding: []float32{1, 0}},
		{Label: "Bob_2", Embedding: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("failed to build gallery: %v", err)
	}

	log := zap.NewNop()
	studentRepo := repository.NewStudentRepository(db)
	roster := services.NewRosterService(studentRepo, log)
	if _, err := roster.SyncFromGallery(context.Background(), g); err != nil {
		t.Fatalf("failed to sync roster: %v", err)
	}

	extractor := media.ExtractorFunc(func(context.Context, image.Image) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	})
	attendance := services.NewAttendanceService(
		studentRepo,
		repository.NewAttendanceRepository(db),
		recognition.NewMatcher(g, recognition.DefaultTolerance, recognition.EuclideanDistance),
		extractor,
		services.AttendanceServiceConfig{MaxImageDimension: 1600, Today: func() string { return testDate }},
		log,
	)
	export := services.NewExportService(sqlDB, database.StatementBuilder(config.DriverSQLite), log)

	router := NewRouter(RouterConfig{
		Attendance:        &AttendanceHandler{Attendance: attendance, Export: export, MaxUploadBytes: 1 << 20, Logger: log},
		Students:          &StudentHandler{Roster: roster, Logger: log},
		DB:                sqlDB,
		AllowedOrigins:    []string{"http://localhost:5173"},
		AdminUsername:     "admin",
		AdminPasswordHash: adminHash,
		Logger:            log,
	})
	return &testServer{db: db, handler: router}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// uploadRequest builds a multipart upload with a small png in field
func uploadRequest(t *testing.T, field string) *http.Request {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "class.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(img.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/mark_attendance", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// reportFor fetches the report for testDate
func (s *testServer) reportFor(t *testing.T) []services.ReportRow {
	t.Helper()
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/get_report?date="+testDate, nil))
	assertStatusCode(t, rec, http.StatusOK)
	var rows []services.ReportRow
	parseJSONResponse(t, rec, &rows)
	return rows
}

func seedRecords(t *testing.T, s *testServer) {
	t.Helper()
	logs := []models.AttendanceLog{
		{StudentID: "1", Name: "Alice", Date: testDate, Status: models.StatusPresent},
		{StudentID: "2", Name: "Bob", Date: testDate, Status: models.StatusAbsent},
	}
	if err := s.db.Create(&logs).Error; err != nil {
		t.Fatalf("failed to seed records: %v", err)
	}
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result ErrorResponse
	parseJSONResponse(t, recorder, &result)
	if result.Error != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result.Error)
	}
}
