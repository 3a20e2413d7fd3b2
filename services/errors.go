package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput marks caller mistakes: missing fields, bad dates, unknown statuses.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when creating a record that already exists.
	ErrConflict = errors.New("already exists")
	// ErrStorage wraps database failures.
	ErrStorage = errors.New("storage error")
)

const dateLayout = "2006-01-02"

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// validateDate checks that date is a YYYY-MM-DD calendar day.
func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return invalidInput("date must be YYYY-MM-DD, got %q", date)
	}
	return nil
}
