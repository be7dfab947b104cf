package deploy

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/melih/lighthouse-deploy/internal/core/ports"
)

// =============================================================================
// Fake container engine
// =============================================================================

type fakeEngine struct {
	mu sync.Mutex

	running   []domain.Container
	ids       []string          // IDs handed out by CreateContainer, in order
	addresses map[string]string // IP assigned on start

	buildEvents []domain.BuildEvent
	buildErr    error
	onBuildNext func()
	volumes     []string

	listErr   error
	createErr error
	startErr  error
	stopErrs  map[string]error

	calls   []string
	created []domain.ContainerSpec
	stopped []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		addresses: map[string]string{},
		stopErrs:  map[string]error{},
	}
}

func (f *fakeEngine) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeEngine) ListContainers(ctx context.Context) ([]domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Container(nil), f.running...), nil
}

func (f *fakeEngine) Build(ctx context.Context, sourcePath, tag string) (ports.BuildLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("build " + tag)
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &fakeBuildLog{events: append([]domain.BuildEvent(nil), f.buildEvents...), onNext: f.onBuildNext}, nil
}

func (f *fakeEngine) CreateContainer(ctx context.Context, spec domain.ContainerSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create " + spec.Image)
	if f.createErr != nil {
		return "", f.createErr
	}
	if len(f.ids) == 0 {
		return "", fmt.Errorf("fake engine has no more container ids")
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	f.created = append(f.created, spec)
	return id, nil
}

func (f *fakeEngine) StartContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start " + id)
	if f.startErr != nil {
		return f.startErr
	}
	spec := f.created[len(f.created)-1]
	f.running = append(f.running, domain.Container{
		ID:        id,
		Name:      spec.Name,
		Image:     spec.Image,
		State:     "running",
		IPAddress: f.addresses[id],
		Labels:    spec.Labels,
	})
	return nil
}

func (f *fakeEngine) StopContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop " + id)
	if err := f.stopErrs[id]; err != nil {
		return err
	}
	f.stopped = append(f.stopped, id)
	kept := f.running[:0]
	for _, c := range f.running {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.running = kept
	return nil
}

func (f *fakeEngine) InspectContainer(ctx context.Context, id string) (*domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.running {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
}

func (f *fakeEngine) InspectImage(ctx context.Context, tag string) (*domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("inspect-image " + tag)
	return &domain.Image{ID: "sha256:feed", Tag: tag, Volumes: f.volumes}, nil
}

func (f *fakeEngine) engineCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeBuildLog struct {
	events []domain.BuildEvent
	onNext func()
	closed bool
}

func (l *fakeBuildLog) Next() (domain.BuildEvent, error) {
	if l.onNext != nil {
		l.onNext()
	}
	if len(l.events) == 0 {
		return domain.BuildEvent{}, io.EOF
	}
	ev := l.events[0]
	l.events = l.events[1:]
	return ev, nil
}

func (l *fakeBuildLog) Close() error {
	l.closed = true
	return nil
}

// =============================================================================
// Fake registry
// =============================================================================

type fakeRegistry struct {
	mu        sync.Mutex
	records   map[string]domain.DeploymentRecord
	removeErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{records: map[string]domain.DeploymentRecord{}}
}

func (r *fakeRegistry) Record(ctx context.Context, rec domain.DeploymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ContainerID]; ok {
		return fmt.Errorf("record %s: %w", rec.ContainerID, domain.ErrDuplicateKey)
	}
	r.records[rec.ContainerID] = rec
	return nil
}

func (r *fakeRegistry) Remove(ctx context.Context, containerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removeErr != nil {
		return r.removeErr
	}
	delete(r.records, containerID)
	return nil
}

func (r *fakeRegistry) Lookup(ctx context.Context, containerID string) (*domain.DeploymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[containerID]; ok {
		return &rec, nil
	}
	var found []domain.DeploymentRecord
	for id, rec := range r.records {
		if containerID != "" && strings.HasPrefix(id, containerID) {
			found = append(found, rec)
		}
	}
	if len(found) > 1 {
		return nil, fmt.Errorf("lookup %s: %w", containerID, domain.ErrAmbiguousID)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("lookup %s: %w", containerID, domain.ErrNotFound)
	}
	return &found[0], nil
}

func (r *fakeRegistry) List(ctx context.Context) ([]domain.DeploymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DeploymentRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRegistry) ListActivePerImage(ctx context.Context) ([]domain.DeploymentRecord, error) {
	all, _ := r.List(ctx)
	return domain.ActivePerImage(all), nil
}

func (r *fakeRegistry) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// =============================================================================
// Fake proxy publisher
// =============================================================================

type fakePublisher struct {
	path      string
	text      string
	writes    int
	reloads   int
	reloadErr error
}

func (p *fakePublisher) Write(ctx context.Context, path, text string) error {
	p.path = path
	p.text = text
	p.writes++
	return nil
}

func (p *fakePublisher) Reload(ctx context.Context) error {
	p.reloads++
	return p.reloadErr
}
