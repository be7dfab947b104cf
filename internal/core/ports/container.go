package ports

import (
	"context"
	"io"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
)

// ContainerEngine defines the container operations a deployment needs.
// This interface allows us to switch between Docker, Podman, or a fake in
// tests without changing the orchestration logic.
type ContainerEngine interface {
	ListContainers(ctx context.Context) ([]domain.Container, error)
	// Build submits the source tree at sourcePath and returns the build log
	// as it is produced. The caller must Close the log.
	Build(ctx context.Context, sourcePath, tag string) (BuildLog, error)
	CreateContainer(ctx context.Context, spec domain.ContainerSpec) (string, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	InspectContainer(ctx context.Context, id string) (*domain.Container, error)
	InspectImage(ctx context.Context, tag string) (*domain.Image, error)
}

// BuildLog is a finite, non-restartable sequence of build events. Next
// returns io.EOF once the build has finished.
type BuildLog interface {
	Next() (domain.BuildEvent, error)
	Close() error
}

// LogStreamer streams a container's output.
type LogStreamer interface {
	ContainerLogs(ctx context.Context, id string) (io.ReadCloser, error)
}
