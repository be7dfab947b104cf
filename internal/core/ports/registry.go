package ports

import (
	"context"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
)

// Registry is the durable record of deployed containers keyed by container ID.
type Registry interface {
	// Record inserts rec; it fails with domain.ErrDuplicateKey if the
	// container ID is already recorded.
	Record(ctx context.Context, rec domain.DeploymentRecord) error
	// Remove deletes the record for containerID. Absent records are not an error.
	Remove(ctx context.Context, containerID string) error
	// Lookup accepts a full container ID or a unique prefix of one. It fails
	// with domain.ErrNotFound if nothing recorded matches.
	Lookup(ctx context.Context, containerID string) (*domain.DeploymentRecord, error)
	// List returns every record, newest first.
	List(ctx context.Context) ([]domain.DeploymentRecord, error)
	// ListActivePerImage returns one record per image: the earliest created.
	ListActivePerImage(ctx context.Context) ([]domain.DeploymentRecord, error)
}
