package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/camden-git/attendancesys/models"
	"github.com/camden-git/attendancesys/services"
)

func TestMarkAttendance(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(uploadRequest(t, "file"))
	assertStatusCode(t, rec, http.StatusOK)

	var result services.MarkResult
	parseJSONResponse(t, rec, &result)
	if result.Date != testDate || result.FacesDetected != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(result.Report) != 2 {
		t.Fatalf("expected 2 report entries, got %d", len(result.Report))
	}
	if result.Report[0].ID != "1" || result.Report[0].Status != models.StatusPresent {
		t.Errorf("expected Alice Present, got %+v", result.Report[0])
	}
	if result.Report[1].ID != "2" || result.Report[1].Status != models.StatusAbsent {
		t.Errorf("expected Bob Absent, got %+v", result.Report[1])
	}
}

func TestMarkAttendance_MissingFile(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(uploadRequest(t, "photo"))
	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "No image file provided")

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/mark_attendance", strings.NewReader("{}")))
	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "No image file provided")
}

func TestMarkAttendance_UndecodableImage(t *testing.T) {
	s := newTestServer(t, "")

	var body bytes.Buffer
	body.WriteString("--b\r\nContent-Disposition: form-data; name=\"file\"; filename=\"x.jpg\"\r\n\r\nnot an image\r\n--b--\r\n")
	req := httptest.NewRequest(http.MethodPost, "/api/mark_attendance", &body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")

	rec := s.do(req)
	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestGetReport(t *testing.T) {
	s := newTestServer(t, "")
	seedRecords(t, s)

	rows := s.reportFor(t)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "Alice" || rows[0].Date != testDate || rows[0].LogID == 0 {
		t.Errorf("unexpected first row %+v", rows[0])
	}

	// default date is today, which the fixture pins to testDate
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/get_report", nil))
	assertStatusCode(t, rec, http.StatusOK)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/get_report?date=2020-01-01", nil))
	assertStatusCode(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/get_report?date=tomorrow", nil))
	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestUpdateAttendance(t *testing.T) {
	s := newTestServer(t, "")
	seedRecords(t, s)
	bob := s.reportFor(t)[1]

	rec := s.do(jsonRequest(t, http.MethodPost, "/api/update_attendance", map[string]any{
		"log_id": bob.LogID,
		"status": "Present",
	}))
	assertStatusCode(t, rec, http.StatusOK)

	var body map[string]any
	parseJSONResponse(t, rec, &body)
	if body["success"] != true || body["message"] != "Record updated" {
		t.Errorf("unexpected body %v", body)
	}

	if got := s.reportFor(t)[1].Status; got != models.StatusPresent {
		t.Errorf("expected Bob Present after correction, got %s", got)
	}
}

func TestUpdateAttendance_Errors(t *testing.T) {
	s := newTestServer(t, "")
	seedRecords(t, s)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing log_id", map[string]any{"status": "Present"}, http.StatusBadRequest},
		{"missing status", map[string]any{"log_id": 1}, http.StatusBadRequest},
		{"unknown status", map[string]any{"log_id": 1, "status": "Late"}, http.StatusBadRequest},
		{"zero log_id", map[string]any{"log_id": 0, "status": "Absent"}, http.StatusBadRequest},
		{"unknown log_id", map[string]any{"log_id": 999, "status": "Absent"}, http.StatusNotFound},
		{"not json", "oops", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(jsonRequest(t, http.MethodPost, "/api/update_attendance", tt.body))
			assertStatusCode(t, rec, tt.status)
		})
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, "")
	seedRecords(t, s)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/export_csv?date="+testDate, nil))
	assertStatusCode(t, rec, http.StatusOK)

	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %s", ct)
	}
	expectedDisposition := "attachment; filename=attendance_" + testDate + ".csv"
	if cd := rec.Header().Get("Content-Disposition"); cd != expectedDisposition {
		t.Errorf("expected %q, got %q", expectedDisposition, cd)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 || records[0][0] != "name" || records[2][2] != "Absent" {
		t.Errorf("unexpected csv %v", records)
	}
}

func TestExportCSV_InvalidDate(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/export_csv?date=nope", nil))
	assertStatusCode(t, rec, http.StatusBadRequest)
	if cd := rec.Header().Get("Content-Disposition"); cd != "" {
		t.Errorf("expected no attachment on error, got %q", cd)
	}
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t, "")
	seedRecords(t, s)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/export_xlsx", nil))
	assertStatusCode(t, rec, http.StatusOK)

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("invalid workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Attendance")
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected header and 2 rows, got %v", rows)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assertStatusCode(t, rec, http.StatusOK)
}
