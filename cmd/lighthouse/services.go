package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/melih/lighthouse-deploy/internal/adapters/docker"
	"github.com/melih/lighthouse-deploy/internal/adapters/nginx"
	"github.com/melih/lighthouse-deploy/internal/adapters/source"
	"github.com/melih/lighthouse-deploy/internal/adapters/sqlite"
	"github.com/melih/lighthouse-deploy/internal/core/deploy"
	"github.com/melih/lighthouse-deploy/internal/core/synth"
)

// services holds the adapters and orchestrator a command works with.
type services struct {
	engine       *docker.Adapter
	registry     *sqlite.Registry
	publisher    *nginx.Publisher
	orchestrator *deploy.Orchestrator
}

// openServices connects to the engine and opens the registry. progress may be
// nil to log progress events.
func (a *app) openServices(ctx context.Context, progress deploy.ProgressFunc) (*services, error) {
	cfg := a.cfg

	engine, err := docker.NewAdapter(docker.Options{
		Host:         cfg.Docker.Host,
		Timeout:      cfg.Docker.Timeout,
		BuildTimeout: cfg.Docker.BuildTimeout,
		StopTimeout:  cfg.Docker.StopTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := engine.Ping(ctx); err != nil {
		engine.Close()
		return nil, err
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	registry, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		engine.Close()
		return nil, err
	}

	publisher, err := nginx.NewPublisher(nginx.Options{
		ReloadCommand: cfg.Proxy.ReloadCommand,
		ReloadTimeout: cfg.Proxy.ReloadTimeout,
		Logger:        a.logger,
	})
	if err != nil {
		registry.Close()
		engine.Close()
		return nil, err
	}

	orchestrator := deploy.New(engine, registry, deploy.Options{
		Org:            cfg.Build.Org,
		DescriptorName: cfg.Build.Descriptor,
		VolumeRoot:     cfg.Volumes.Root,
		Sources:        source.NewResolver(source.Options{Depth: 1, Logger: a.logger}),
		Publisher:      publisher,
		Synthesizer:    synth.New(a.logger),
		Logger:         a.logger,
		Progress:       progress,
	})

	return &services{
		engine:       engine,
		registry:     registry,
		publisher:    publisher,
		orchestrator: orchestrator,
	}, nil
}

func (s *services) Close() {
	if err := s.registry.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close registry:", err)
	}
	if err := s.engine.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close docker client:", err)
	}
}
