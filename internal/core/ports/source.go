package ports

import "context"

// Workspace is a source tree ready to be built.
type Workspace struct {
	Dir      string
	Revision string // commit hash when the tree is a git checkout
	Cleanup  func()
}

// SourceResolver turns a deploy source (local directory or repository URL)
// into a local workspace.
type SourceResolver interface {
	Resolve(ctx context.Context, source string) (*Workspace, error)
}
