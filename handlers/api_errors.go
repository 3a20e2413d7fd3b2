package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/camden-git/attendancesys/media"
	"github.com/camden-git/attendancesys/services"
)

var validate = validator.New()

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		// the status line is already out, nothing useful left to do on failure
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteAPIError writes {"error": detail} with the given HTTP status.
func WriteAPIError(w http.ResponseWriter, httpStatus int, detail string) {
	writeJSON(w, httpStatus, ErrorResponse{Error: detail})
}

// writeValidationError reports struct validation failures per field.
func writeValidationError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		WriteAPIError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	fields := make(map[string]string, len(ve))
	missing := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
		missing = append(missing, fe.Field())
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:  fmt.Sprintf("Invalid or missing fields: %s", strings.Join(missing, ", ")),
		Fields: fields,
	})
}

// writeServiceError maps service sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, media.ErrDecode):
		WriteAPIError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		WriteAPIError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		WriteAPIError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrStorage):
		logger.Error("storage failure", zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "Internal server error")
	}
}
