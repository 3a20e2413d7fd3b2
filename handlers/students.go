package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/camden-git/attendancesys/services"
)

type StudentHandler struct {
	Roster *services.RosterService
	Logger *zap.Logger
}

func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Roster.List(r.Context())
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

type createStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

func (h *StudentHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	student, err := h.Roster.Create(r.Context(), req.StudentID, req.Name)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

type renameStudentRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *StudentHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "student_id")

	var req renameStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	student, err := h.Roster.Rename(r.Context(), studentID, req.Name)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}
