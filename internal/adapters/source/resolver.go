// Package source turns deploy sources into local build workspaces. A source is
// either a directory on disk or a git repository URL that is cloned into a
// temporary directory.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/melih/lighthouse-deploy/internal/core/ports"
)

// Options configures a Resolver.
type Options struct {
	// Depth limits clone history. Zero clones the full history.
	Depth int
	// TempDir is where clones are placed. Empty uses os.TempDir.
	TempDir string
	// Progress receives clone progress output when non-nil.
	Progress io.Writer
	Logger   *slog.Logger
}

// Resolver implements ports.SourceResolver.
type Resolver struct {
	opts Options
}

var _ ports.SourceResolver = (*Resolver)(nil)

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{opts: opts}
}

// Resolve returns a workspace for source. Repository URLs may carry a
// "#branch" suffix selecting the branch to clone.
func (r *Resolver) Resolve(ctx context.Context, source string) (*ports.Workspace, error) {
	if source == "" {
		return nil, errors.New("source is empty")
	}
	if IsRemote(source) {
		return r.clone(ctx, source)
	}
	return r.local(source)
}

func (r *Resolver) local(dir string) (*ports.Workspace, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &ports.Workspace{Dir: dir, Revision: headRevision(dir)}, nil
}

func (r *Resolver) clone(ctx context.Context, source string) (*ports.Workspace, error) {
	url, branch, _ := strings.Cut(source, "#")

	tmpDir, err := os.MkdirTemp(r.opts.TempDir, "lighthouse-src-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.opts.Logger.Warn("failed to remove clone", "dir", tmpDir, "error", err)
		}
	}

	r.opts.Logger.Info("cloning source", "url", url, "branch", branch, "dir", tmpDir)
	cloneOpts := &git.CloneOptions{
		URL:      url,
		Depth:    r.opts.Depth,
		Progress: r.opts.Progress,
	}
	if branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		cloneOpts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, tmpDir, false, cloneOpts)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to clone %s: %w", url, err)
	}

	ws := &ports.Workspace{Dir: tmpDir, Cleanup: cleanup}
	if head, err := repo.Head(); err == nil {
		ws.Revision = head.Hash().String()
	}
	return ws, nil
}

// headRevision returns the commit checked out in dir, or "" when dir is not
// inside a git repository.
func headRevision(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}

// IsRemote reports whether source names a repository to clone rather than a
// local directory.
func IsRemote(source string) bool {
	for _, scheme := range []string{"http://", "https://", "ssh://", "git://", "file://"} {
		if strings.HasPrefix(source, scheme) {
			return true
		}
	}
	// scp-like syntax: git@github.com:org/repo.git
	if at := strings.Index(source, "@"); at > 0 {
		if colon := strings.Index(source[at:], ":"); colon > 1 && !strings.Contains(source[:at], "/") {
			return true
		}
	}
	return false
}
