package docker

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionFailed = errors.New("docker connection failed")
	ErrContainerMissing = errors.New("container not found")
	ErrImageMissing     = errors.New("image not found")
	ErrTimeout          = errors.New("operation timed out")
)

// EngineError wraps Docker failures with the operation and entity involved.
type EngineError struct {
	Op      string // Operation that failed (e.g., "CreateContainer")
	Entity  string // container, image
	ID      string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError.
func NewEngineError(op, entity, id, message string, err error) *EngineError {
	return &EngineError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
