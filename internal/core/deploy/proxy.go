package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/melih/lighthouse-deploy/internal/core/proxyconf"
	"github.com/melih/lighthouse-deploy/internal/core/synth"
)

// RenderProxy renders the proxy configuration for the current registry state
// against the containers the engine reports as running.
func (o *Orchestrator) RenderProxy(ctx context.Context) (string, []synth.Skipped, error) {
	records, err := o.registry.ListActivePerImage(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("list active deployments: %w", err)
	}
	running, err := o.engine.ListContainers(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("list containers: %w", err)
	}

	doc, skipped, err := o.opts.Synthesizer.Build(records, domain.IndexByID(running))
	if err != nil {
		return "", skipped, err
	}
	return proxyconf.Serialize(doc), skipped, nil
}

// PublishProxy renders the proxy configuration, writes it to path and asks
// the proxy to reload. Records left out of the rendering are returned as
// warnings alongside any write or reload failure.
func (o *Orchestrator) PublishProxy(ctx context.Context, path string) []*Warning {
	if o.opts.Publisher == nil {
		return []*Warning{{Kind: domain.ErrReloadFailed, Err: errors.New("no proxy publisher configured")}}
	}
	text, skipped, err := o.RenderProxy(ctx)
	if err != nil {
		kind := domain.ErrReloadFailed
		if errors.Is(err, domain.ErrUnresolvedPlaceholder) {
			kind = domain.ErrUnresolvedPlaceholder
		}
		return []*Warning{{Kind: kind, Err: err}}
	}

	warnings := make([]*Warning, 0, len(skipped))
	for _, s := range skipped {
		kind := s.Kind
		if kind == nil {
			kind = domain.ErrNotFound
		}
		warnings = append(warnings, &Warning{
			Kind:        kind,
			ContainerID: s.ContainerID,
			Err:         fmt.Errorf("left out of proxy configuration for %s: %s", s.Image, s.Reason),
		})
	}
	if err := o.opts.Publisher.Write(ctx, path, text); err != nil {
		return append(warnings, &Warning{Kind: domain.ErrReloadFailed, Err: fmt.Errorf("write %s: %w", path, err)})
	}
	if err := o.opts.Publisher.Reload(ctx); err != nil {
		return append(warnings, &Warning{Kind: domain.ErrReloadFailed, Err: err})
	}
	o.opts.Logger.Info("proxy configuration published", "path", path, "skipped", len(skipped))
	return warnings
}
