// Package docker implements the container engine on top of the Docker SDK.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/melih/lighthouse-deploy/internal/core/domain"
)

// Options tunes the adapter. Zero durations disable the corresponding limit.
type Options struct {
	Host         string
	Timeout      time.Duration // per non-streaming call
	BuildTimeout time.Duration
	StopTimeout  time.Duration // grace period before the engine kills a stopped container
}

// Adapter implements ports.ContainerEngine using Docker SDK
type Adapter struct {
	cli  client.APIClient
	opts Options
}

// NewAdapter creates a new Docker adapter instance
func NewAdapter(opts Options) (*Adapter, error) {
	clientOpts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}
	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, NewEngineError("NewAdapter", "", "", fmt.Sprintf("failed to create docker client: %v", err), ErrConnectionFailed)
	}
	return &Adapter{cli: cli, opts: opts}, nil
}

// newAdapterWithClient wires an existing API client, used by tests.
func newAdapterWithClient(cli client.APIClient, opts Options) *Adapter {
	return &Adapter{cli: cli, opts: opts}
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.cli.Close()
}

func (a *Adapter) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.opts.Timeout)
}

func wrap(op, entity, id string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewEngineError(op, entity, id, err.Error(), ErrTimeout)
	case client.IsErrNotFound(err) && entity == "container":
		return NewEngineError(op, entity, id, err.Error(), errors.Join(ErrContainerMissing, domain.ErrNotFound))
	case client.IsErrNotFound(err) && entity == "image":
		return NewEngineError(op, entity, id, err.Error(), errors.Join(ErrImageMissing, domain.ErrNotFound))
	case client.IsErrConnectionFailed(err):
		return NewEngineError(op, entity, id, err.Error(), ErrConnectionFailed)
	}
	return NewEngineError(op, entity, id, err.Error(), err)
}

// Ping checks the daemon is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()
	if _, err := a.cli.Ping(ctx); err != nil {
		return wrap("Ping", "", "", err)
	}
	return nil
}

// ListContainers returns running containers with their network address.
func (a *Adapter) ListContainers(ctx context.Context) ([]domain.Container, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	containers, err := a.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, wrap("ListContainers", "container", "", err)
	}

	result := make([]domain.Container, 0, len(containers))
	for _, c := range containers {
		result = append(result, summaryToContainer(c))
	}
	return result, nil
}

func summaryToContainer(c types.Container) domain.Container {
	// Use the first name if available, remove slash
	name := ""
	if len(c.Names) > 0 && len(c.Names[0]) > 1 {
		name = c.Names[0][1:]
	}
	var networks map[string]string
	if c.NetworkSettings != nil {
		networks = make(map[string]string, len(c.NetworkSettings.Networks))
		for netName, ep := range c.NetworkSettings.Networks {
			if ep != nil {
				networks[netName] = ep.IPAddress
			}
		}
	}
	return domain.Container{
		ID:        c.ID,
		Name:      name,
		Image:     c.Image,
		Status:    c.Status,
		State:     c.State,
		IPAddress: pickAddress("", networks),
		Labels:    c.Labels,
	}
}

// pickAddress prefers the default bridge address, then the first non-empty
// address by network name.
func pickAddress(primary string, networks map[string]string) string {
	if primary != "" {
		return primary
	}
	if ip := networks["bridge"]; ip != "" {
		return ip
	}
	names := make([]string, 0, len(networks))
	for n := range networks {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if networks[n] != "" {
			return networks[n]
		}
	}
	return ""
}

// CreateContainer creates a container from spec without starting it.
func (a *Adapter) CreateContainer(ctx context.Context, spec domain.ContainerSpec) (string, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	exposed, bindings, err := nat.ParsePortSpecs(spec.Ports.Specs())
	if err != nil {
		return "", NewEngineError("CreateContainer", "container", spec.Name, "invalid port mapping", err)
	}

	config := &container.Config{
		Image:        spec.Image,
		Env:          domain.DeploymentConfig{Environment: spec.Env}.Env(),
		Labels:       spec.Labels,
		ExposedPorts: exposed,
	}
	hostConfig := &container.HostConfig{
		PortBindings: bindings,
		Binds:        spec.Binds,
	}

	resp, err := a.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return "", wrap("CreateContainer", "container", spec.Name, err)
	}
	return resp.ID, nil
}

// StartContainer starts a created container.
func (a *Adapter) StartContainer(ctx context.Context, id string) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()
	if err := a.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return wrap("StartContainer", "container", id, err)
	}
	return nil
}

// StopContainer stops a running container
func (a *Adapter) StopContainer(ctx context.Context, id string) error {
	opts := container.StopOptions{}
	if a.opts.StopTimeout > 0 {
		seconds := int(a.opts.StopTimeout.Seconds())
		opts.Timeout = &seconds
	}
	// The call must outlive the grace period the engine waits for.
	timeout := a.opts.Timeout
	if timeout > 0 {
		timeout += a.opts.StopTimeout
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := a.cli.ContainerStop(ctx, id, opts); err != nil {
		return wrap("StopContainer", "container", id, err)
	}
	return nil
}

// InspectContainer returns the current state of a container.
func (a *Adapter) InspectContainer(ctx context.Context, id string) (*domain.Container, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	resp, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, wrap("InspectContainer", "container", id, err)
	}

	c := &domain.Container{ID: resp.ID, Name: trimSlash(resp.Name), Image: resp.Image}
	if resp.Config != nil {
		c.Image = resp.Config.Image
		c.Labels = resp.Config.Labels
	}
	if resp.State != nil {
		c.State = resp.State.Status
		c.Status = resp.State.Status
	}
	if resp.NetworkSettings != nil {
		networks := make(map[string]string, len(resp.NetworkSettings.Networks))
		for netName, ep := range resp.NetworkSettings.Networks {
			if ep != nil {
				networks[netName] = ep.IPAddress
			}
		}
		c.IPAddress = pickAddress(resp.NetworkSettings.IPAddress, networks)
	}
	return c, nil
}

// InspectImage returns the declared volumes of an image.
func (a *Adapter) InspectImage(ctx context.Context, tag string) (*domain.Image, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	resp, _, err := a.cli.ImageInspectWithRaw(ctx, tag)
	if err != nil {
		return nil, wrap("InspectImage", "image", tag, err)
	}

	img := &domain.Image{ID: resp.ID, Tag: tag}
	if resp.Config != nil {
		for v := range resp.Config.Volumes {
			img.Volumes = append(img.Volumes, v)
		}
		sort.Strings(img.Volumes)
	}
	return img, nil
}

// ContainerLogs returns a stream of container logs
func (a *Adapter) ContainerLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     false,
		Timestamps: true,
	}
	logs, err := a.cli.ContainerLogs(ctx, id, options)
	if err != nil {
		return nil, wrap("ContainerLogs", "container", id, err)
	}
	return logs, nil
}

func trimSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}
