// Package deploy sequences a rolling single-host deployment: build an image,
// start a replacement container, record it, retire the containers it
// replaces and optionally republish the reverse proxy configuration.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/melih/lighthouse-deploy/internal/core/ports"
	"github.com/melih/lighthouse-deploy/internal/core/synth"
)

// Options configures an Orchestrator.
type Options struct {
	// Org is the organization images are tagged under (org/basename:latest).
	Org string
	// DescriptorName is the descriptor file read from the source tree.
	DescriptorName string
	// VolumeRoot is where host directories for image volumes are allocated.
	VolumeRoot string

	Sources     ports.SourceResolver
	Publisher   ports.ProxyPublisher
	Synthesizer *synth.Synthesizer
	Logger      *slog.Logger
	Progress    ProgressFunc

	Now        func() time.Time
	NameSuffix func() string
}

// Orchestrator runs deployments against a container engine and a registry.
// Deployments of the same image must be serialized by the caller.
type Orchestrator struct {
	engine   ports.ContainerEngine
	registry ports.Registry
	opts     Options
}

// New creates an Orchestrator, filling unset options with defaults.
func New(engine ports.ContainerEngine, registry ports.Registry, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DescriptorName == "" {
		opts.DescriptorName = domain.DefaultDescriptorName
	}
	if opts.Sources == nil {
		opts.Sources = localSources{}
	}
	if opts.Synthesizer == nil {
		opts.Synthesizer = synth.New(opts.Logger)
	}
	if opts.Progress == nil {
		opts.Progress = LogProgress(opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NameSuffix == nil {
		opts.NameSuffix = func() string { return uuid.NewString()[:8] }
	}
	return &Orchestrator{engine: engine, registry: registry, opts: opts}
}

// Request identifies what to deploy.
type Request struct {
	// Source is a local directory or a git repository URL.
	Source string
	// Basename names the image (org/basename) and, by default, the container.
	Basename string
	// ProxyOutput, when set, is where the proxy configuration is written
	// after cutover.
	ProxyOutput string
}

// Result describes a successful deployment.
type Result struct {
	ContainerID   string
	ContainerName string
	Image         string
	Address       string
	Revision      string
	Replaced      []string
	// Warnings are failures after cutover that did not revert it.
	Warnings []error
}

type run struct {
	o     *Orchestrator
	id    string
	phase Phase
	log   *slog.Logger
}

func (o *Orchestrator) newRun(req Request) *run {
	id := uuid.NewString()
	return &run{
		o:   o,
		id:  id,
		log: o.opts.Logger.With("run_id", id, "basename", req.Basename),
	}
}

func (r *run) enter(next Phase) {
	if r.phase != 0 && !r.phase.CanTransition(next) {
		panic(fmt.Sprintf("deploy: invalid phase transition %s -> %s", r.phase, next))
	}
	r.phase = next
	r.o.opts.Progress(Event{Kind: EventPhase, Phase: next})
}

func (r *run) info(format string, args ...any) {
	r.o.opts.Progress(Event{Kind: EventInfo, Phase: r.phase, Message: fmt.Sprintf(format, args...)})
}

func (r *run) warn(w *Warning) {
	r.o.opts.Progress(Event{Kind: EventWarning, Phase: r.phase, Message: w.Error(), Err: w})
}

func (r *run) fail(kind, err error) error {
	failed := &Error{Phase: r.phase, Kind: kind, Err: err}
	r.log.Error("deployment failed", "phase", r.phase.String(), "error", failed)
	r.enter(PhaseFailed)
	return failed
}

// Deploy builds the source, starts a replacement container, records it and
// retires the containers previously running the same image. Failures before
// the new container is recorded abort the run and are returned as *Error;
// later failures are returned as Result.Warnings.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (*Result, error) {
	r := o.newRun(req)

	r.enter(PhaseLoading)
	if err := domain.ValidateImageName(o.opts.Org, req.Basename); err != nil {
		return nil, r.fail(domain.ErrConfigParse, err)
	}
	ws, err := o.opts.Sources.Resolve(ctx, req.Source)
	if err != nil {
		return nil, r.fail(kindFor(ctx, err, domain.ErrSourceUnavailable), err)
	}
	if ws.Cleanup != nil {
		defer ws.Cleanup()
	}
	cfg, err := domain.LoadDeploymentConfig(ws.Dir, o.opts.DescriptorName)
	if err != nil {
		return nil, r.fail(domain.ErrConfigParse, err)
	}

	image := domain.ImageName(o.opts.Org, req.Basename)
	tag := domain.BuildTag(o.opts.Org, req.Basename)
	result := &Result{Image: image, Revision: ws.Revision}

	r.enter(PhaseDiscovering)
	running, err := o.engine.ListContainers(ctx)
	if err != nil {
		return nil, r.fail(kindFor(ctx, err, domain.ErrDiscoveryFailed), err)
	}
	records, err := o.registry.List(ctx)
	if err != nil {
		return nil, r.fail(kindFor(ctx, err, domain.ErrDiscoveryFailed), fmt.Errorf("list deployments: %w", err))
	}
	result.Replaced = replacedContainers(running, records, image, tag)
	if len(result.Replaced) == 0 {
		r.info("no running or recorded container for %s", tag)
	} else {
		r.info("%d container(s) for %s will be replaced", len(result.Replaced), tag)
	}

	r.enter(PhaseBuilding)
	if err := o.build(ctx, r, ws.Dir, tag); err != nil {
		return nil, err
	}

	r.enter(PhaseCreating)
	img, err := o.engine.InspectImage(ctx, tag)
	if err != nil {
		return nil, r.fail(kindFor(ctx, err, domain.ErrCreateFailed), fmt.Errorf("inspect image %s: %w", tag, err))
	}
	binds, err := o.allocateVolumes(req.Basename, img.Volumes)
	if err != nil {
		return nil, r.fail(domain.ErrCreateFailed, err)
	}
	spec := domain.ContainerSpec{
		Image:  tag,
		Name:   cfg.ContainerName(req.Basename) + "-" + o.opts.NameSuffix(),
		Env:    cfg.Environment,
		Ports:  cfg.Ports,
		Binds:  binds,
		Labels: containerLabels(req.Basename, image, ws.Revision),
	}
	id, err := o.engine.CreateContainer(ctx, spec)
	if err != nil {
		return nil, r.fail(kindFor(ctx, err, domain.ErrCreateFailed), err)
	}
	result.ContainerID = id
	result.ContainerName = spec.Name
	r.info("created container %s (%s)", spec.Name, shortID(id))

	r.enter(PhaseStarting)
	if err := o.engine.StartContainer(ctx, id); err != nil {
		// The created container is left in place for inspection.
		return nil, r.fail(kindFor(ctx, err, domain.ErrStartFailed),
			fmt.Errorf("container %s left unstarted: %w", shortID(id), err))
	}
	if c, err := o.engine.InspectContainer(ctx, id); err == nil {
		result.Address = c.IPAddress
		r.info("container %s running at %s", shortID(id), c.IPAddress)
	} else {
		r.log.Warn("inspect started container", "container_id", id, "error", err)
	}

	r.enter(PhaseRecording)
	rec := domain.NewDeploymentRecord(id, image, *cfg, o.opts.Now())
	if err := o.registry.Record(ctx, rec); err != nil {
		kind := domain.ErrRecordFailed
		if errors.Is(err, domain.ErrDuplicateKey) {
			kind = domain.ErrDuplicateKey
		}
		return nil, r.fail(kind, fmt.Errorf("container %s is running but unrecorded: %w", shortID(id), err))
	}

	// Cutover has happened. Nothing below fails the deployment.
	r.enter(PhaseDecommissioning)
	for _, w := range o.Decommission(ctx, result.Replaced) {
		r.warn(w)
		result.Warnings = append(result.Warnings, w)
	}

	if req.ProxyOutput != "" {
		r.enter(PhaseRendering)
		for _, w := range o.PublishProxy(ctx, req.ProxyOutput) {
			r.warn(w)
			result.Warnings = append(result.Warnings, w)
		}
	}

	r.enter(PhaseDone)
	r.log.Info("deployment complete",
		"container_id", id, "image", image, "replaced", len(result.Replaced), "warnings", len(result.Warnings))
	return result, nil
}

func (o *Orchestrator) build(ctx context.Context, r *run, dir, tag string) error {
	stream, err := o.engine.Build(ctx, dir, tag)
	if err != nil {
		return r.fail(kindFor(ctx, err, domain.ErrBuildFailed), err)
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return r.fail(kindFor(ctx, err, domain.ErrBuildFailed), err)
		}
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return r.fail(kindFor(ctx, err, domain.ErrBuildFailed), err)
		}
		if ev.Failed() {
			return r.fail(domain.ErrBuildFailed, errors.New(ev.ErrorDetail))
		}
		o.opts.Progress(Event{Kind: EventBuildOutput, Phase: PhaseBuilding, Message: ev.Line})
	}
}

// allocateVolumes creates a host directory for every declared image volume
// under VolumeRoot/basename and returns read-write binds for them.
func (o *Orchestrator) allocateVolumes(basename string, volumes []string) ([]string, error) {
	if len(volumes) == 0 {
		return nil, nil
	}
	if o.opts.VolumeRoot == "" {
		return nil, fmt.Errorf("image declares %d volume(s) but no volume root is configured", len(volumes))
	}
	root, err := filepath.Abs(o.opts.VolumeRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve volume root: %w", err)
	}

	binds := make([]string, 0, len(volumes))
	for _, v := range volumes {
		host := filepath.Join(root, basename, filepath.Clean("/"+v))
		if err := os.MkdirAll(host, 0o755); err != nil {
			return nil, fmt.Errorf("allocate volume %s: %w", v, err)
		}
		binds = append(binds, host+":"+v+":rw")
	}
	return binds, nil
}

// replacedContainers returns the running containers of the image followed by
// recorded ones that are no longer running, so stale records are retired too.
func replacedContainers(running []domain.Container, records []domain.DeploymentRecord, image, tag string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, c := range running {
		if domain.SameImage(c.Image, tag) || c.Labels[domain.LabelImage] == image {
			ids = append(ids, c.ID)
			seen[c.ID] = true
		}
	}
	for _, rec := range records {
		if rec.Image == image && !seen[rec.ContainerID] {
			ids = append(ids, rec.ContainerID)
			seen[rec.ContainerID] = true
		}
	}
	return ids
}

func containerLabels(basename, image, revision string) map[string]string {
	labels := map[string]string{
		domain.LabelDeployment: basename,
		domain.LabelImage:      image,
	}
	if revision != "" {
		labels[domain.LabelRevision] = revision
	}
	return labels
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// localSources resolves sources as existing local directories.
type localSources struct{}

func (localSources) Resolve(_ context.Context, source string) (*ports.Workspace, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", source)
	}
	return &ports.Workspace{Dir: source}, nil
}
