package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/melih/lighthouse-deploy/internal/core/ports"
	"github.com/moby/patternmatcher/ignorefile"
)

// Build tars the source tree (honouring .dockerignore) and submits it to the
// daemon. The returned log decodes the daemon's JSON stream lazily.
func (a *Adapter) Build(ctx context.Context, sourcePath, tag string) (ports.BuildLog, error) {
	excludes, err := readDockerignore(sourcePath)
	if err != nil {
		return nil, NewEngineError("Build", "image", tag, "failed to read .dockerignore", err)
	}
	buildContext, err := archive.TarWithOptions(sourcePath, &archive.TarOptions{ExcludePatterns: excludes})
	if err != nil {
		return nil, NewEngineError("Build", "image", tag, "failed to create build context", err)
	}

	cancel := context.CancelFunc(func() {})
	if a.opts.BuildTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.opts.BuildTimeout)
	}

	resp, err := a.cli.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true, // Remove intermediate containers
	})
	if err != nil {
		cancel()
		buildContext.Close()
		return nil, wrap("Build", "image", tag, err)
	}
	return newBuildStream(resp.Body, func() {
		cancel()
		buildContext.Close()
	}), nil
}

func readDockerignore(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".dockerignore"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ignorefile.ReadAll(f)
}

// buildStream decodes jsonmessage records one at a time.
type buildStream struct {
	body    io.ReadCloser
	dec     *json.Decoder
	release func()
	pending []string
	done    bool
}

func newBuildStream(body io.ReadCloser, release func()) *buildStream {
	return &buildStream{body: body, dec: json.NewDecoder(body), release: release}
}

// Next returns the next log line or error detail. Multi-line stream chunks
// are split into one event per line.
func (s *buildStream) Next() (domain.BuildEvent, error) {
	for {
		if len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]
			return domain.BuildEvent{Line: line}, nil
		}
		if s.done {
			return domain.BuildEvent{}, io.EOF
		}

		var msg jsonmessage.JSONMessage
		if err := s.dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				s.done = true
				continue
			}
			return domain.BuildEvent{}, fmt.Errorf("decode build output: %w", err)
		}

		if msg.Error != nil {
			return domain.BuildEvent{ErrorDetail: msg.Error.Message}, nil
		}
		if msg.ErrorMessage != "" {
			return domain.BuildEvent{ErrorDetail: msg.ErrorMessage}, nil
		}

		text := msg.Stream
		if text == "" && msg.Status != "" {
			text = msg.Status
			if msg.Progress != nil {
				text = strings.TrimSpace(text + " " + msg.Progress.String())
			}
		}
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			if strings.TrimSpace(line) != "" {
				s.pending = append(s.pending, strings.TrimRight(line, "\r"))
			}
		}
	}
}

// Close stops reading the build output and releases the build context.
func (s *buildStream) Close() error {
	err := s.body.Close()
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return err
}
