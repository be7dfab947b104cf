package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
)

// Error is the terminal failure of a deployment run. Kind is one of the
// domain error kinds; Err carries the underlying diagnostic.
type Error struct {
	Phase Phase
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (while %s)", e.Kind, e.Phase)
	}
	return fmt.Sprintf("%s (while %s): %v", e.Kind, e.Phase, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Warning is a non-fatal failure reported after cutover.
type Warning struct {
	Kind        error
	ContainerID string
	Err         error
}

func (w *Warning) Error() string {
	if w.ContainerID != "" {
		return fmt.Sprintf("%s: container %s: %v", w.Kind, w.ContainerID, w.Err)
	}
	return fmt.Sprintf("%s: %v", w.Kind, w.Err)
}

func (w *Warning) Unwrap() []error {
	return []error{w.Kind, w.Err}
}

// kindFor maps context cancellation to ErrCancelled and leaves other errors
// with the phase's own kind.
func kindFor(ctx context.Context, err error, kind error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return domain.ErrCancelled
	}
	return kind
}
