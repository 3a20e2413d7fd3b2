package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/camden-git/attendancesys/models"
	"github.com/camden-git/attendancesys/services"
)

// multipart parts beyond this are spooled to disk
const multipartMemory = 8 << 20

type AttendanceHandler struct {
	Attendance     *services.AttendanceService
	Export         *services.ExportService
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// MarkAttendance accepts a class photo in the multipart field "file".
func (h *AttendanceHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteAPIError(w, http.StatusRequestEntityTooLarge, "Image file too large")
			return
		}
		WriteAPIError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		WriteAPIError(w, http.StatusBadRequest, "No selected file")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	result, err := h.Attendance.MarkAttendance(r.Context(), data)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetReport lists the records of ?date=, today when omitted.
func (h *AttendanceHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Attendance.GetReport(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type updateAttendanceRequest struct {
	LogID  *uint  `json:"log_id" validate:"required"`
	Status string `json:"status" validate:"required,oneof=Present Absent"`
}

// UpdateAttendance applies a manual correction to one record.
func (h *AttendanceHandler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	var req updateAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if _, err := h.Attendance.UpdateAttendance(r.Context(), *req.LogID, models.AttendanceStatus(req.Status)); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Record updated"})
}

func (h *AttendanceHandler) exportDate(r *http.Request) string {
	if date := r.URL.Query().Get("date"); date != "" {
		return date
	}
	return h.Attendance.Today()
}

// ExportCSV downloads the records of ?date= as CSV.
func (h *AttendanceHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	date := h.exportDate(r)

	var buf bytes.Buffer
	if err := h.Export.WriteCSV(r.Context(), &buf, date); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+services.Filename(date, "csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ExportXLSX downloads the records of ?date= as a spreadsheet.
func (h *AttendanceHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	date := h.exportDate(r)

	var buf bytes.Buffer
	if err := h.Export.WriteXLSX(r.Context(), &buf, date); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+services.Filename(date, "xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
