// Package sqlite persists deployment records in an embedded SQLite database.
package sqlite

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailed is returned when the database cannot be opened.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when schema migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned when a stored row cannot be decoded.
	ErrInvalidData = errors.New("invalid data format")
)

// RegistryError wraps errors with additional context.
type RegistryError struct {
	Op      string // Operation that failed (e.g., "Record")
	ID      string // Container ID if applicable
	Message string
	Err     error
}

func (e *RegistryError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(op, id, message string, err error) *RegistryError {
	return &RegistryError{
		Op:      op,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
