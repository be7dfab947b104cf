package deploy

import (
	"context"
	"fmt"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
)

// Decommission removes the registry entry and stops the container for every
// id. Each failure is returned as a warning and does not stop the others.
func (o *Orchestrator) Decommission(ctx context.Context, ids []string) []*Warning {
	var warnings []*Warning
	for _, id := range ids {
		if err := o.registry.Remove(ctx, id); err != nil {
			warnings = append(warnings, &Warning{Kind: domain.ErrRecordFailed, ContainerID: id, Err: err})
		}
		if err := o.engine.StopContainer(ctx, id); err != nil {
			warnings = append(warnings, &Warning{Kind: domain.ErrStopFailed, ContainerID: id, Err: err})
			continue
		}
		o.opts.Logger.Info("stopped container", "container_id", id)
	}
	return warnings
}

// Undeploy retires a single recorded container, named by its ID or a unique
// prefix of it: its registry entry is removed and the container is stopped. It fails with domain.ErrNotFound if
// the container is not recorded. When proxyOutput is set the proxy
// configuration is republished afterwards.
func (o *Orchestrator) Undeploy(ctx context.Context, containerID, proxyOutput string) ([]error, error) {
	rec, err := o.registry.Lookup(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("undeploy %s: %w", containerID, err)
	}

	var warnings []error
	for _, w := range o.Decommission(ctx, []string{rec.ContainerID}) {
		warnings = append(warnings, w)
	}
	if proxyOutput != "" {
		for _, w := range o.PublishProxy(ctx, proxyOutput) {
			warnings = append(warnings, w)
		}
	}
	return warnings, nil
}
