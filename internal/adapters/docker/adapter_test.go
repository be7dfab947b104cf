package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/melih/lighthouse-deploy/internal/core/domain"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI overrides the client calls the adapter makes; anything else panics
// through the nil embedded interface.
type fakeAPI struct {
	client.APIClient

	containers []types.Container
	image      types.ImageInspect
	imageErr   error

	createdConfig *container.Config
	createdHost   *container.HostConfig
	createdName   string
}

func (f *fakeAPI) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	return f.containers, nil
}

func (f *fakeAPI) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
	networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string,
) (container.CreateResponse, error) {
	f.createdConfig = config
	f.createdHost = hostConfig
	f.createdName = containerName
	return container.CreateResponse{ID: "c0ffee"}, nil
}

func (f *fakeAPI) ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
	return f.image, nil, f.imageErr
}

func TestListContainers_MapsSummary(t *testing.T) {
	api := &fakeAPI{containers: []types.Container{{
		ID:     "0123456789abcdef",
		Names:  []string{"/svc-abcd1234"},
		Image:  "org/svc:latest",
		State:  "running",
		Status: "Up 2 minutes",
		Labels: map[string]string{domain.LabelImage: "org/svc"},
		NetworkSettings: &types.SummaryNetworkSettings{Networks: map[string]*network.EndpointSettings{
			"bridge": {IPAddress: "172.17.0.4"},
		}},
	}}}
	a := newAdapterWithClient(api, Options{})

	got, err := a.ListContainers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Container{
		ID:        "0123456789abcdef",
		Name:      "svc-abcd1234",
		Image:     "org/svc:latest",
		State:     "running",
		Status:    "Up 2 minutes",
		IPAddress: "172.17.0.4",
		Labels:    map[string]string{domain.LabelImage: "org/svc"},
	}, got[0])
}

func TestCreateContainer_TranslatesSpec(t *testing.T) {
	api := &fakeAPI{}
	a := newAdapterWithClient(api, Options{})

	id, err := a.CreateContainer(context.Background(), domain.ContainerSpec{
		Image:  "org/svc:latest",
		Name:   "svc-abcd1234",
		Env:    map[string]string{"B": "2", "A": "1"},
		Ports:  domain.PortMap{"80": "8080"},
		Binds:  []string{"/srv/volumes/svc/data:/data:rw"},
		Labels: map[string]string{domain.LabelDeployment: "svc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", id)

	assert.Equal(t, "svc-abcd1234", api.createdName)
	assert.Equal(t, "org/svc:latest", api.createdConfig.Image)
	assert.Equal(t, []string{"A=1", "B=2"}, api.createdConfig.Env)
	assert.Contains(t, api.createdConfig.ExposedPorts, nat.Port("80/tcp"))
	assert.Equal(t, []nat.PortBinding{{HostIP: "", HostPort: "8080"}}, api.createdHost.PortBindings[nat.Port("80/tcp")])
	assert.Equal(t, []string{"/srv/volumes/svc/data:/data:rw"}, api.createdHost.Binds)
}

func TestInspectImage_SortsVolumes(t *testing.T) {
	api := &fakeAPI{image: types.ImageInspect{
		ID: "sha256:feed",
		Config: &container.Config{Volumes: map[string]struct{}{
			"/var/lib/app": {},
			"/data":        {},
		}},
	}}
	a := newAdapterWithClient(api, Options{})

	img, err := a.InspectImage(context.Background(), "org/svc:latest")
	require.NoError(t, err)
	assert.Equal(t, []string{"/data", "/var/lib/app"}, img.Volumes)
}

func TestInspectImage_WrapsErrors(t *testing.T) {
	api := &fakeAPI{imageErr: errors.New("boom")}
	a := newAdapterWithClient(api, Options{})

	_, err := a.InspectImage(context.Background(), "org/svc:latest")
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "InspectImage", engineErr.Op)
	assert.Equal(t, "org/svc:latest", engineErr.ID)
}

func TestWrap_Timeout(t *testing.T) {
	err := wrap("StopContainer", "container", "c1", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPickAddress(t *testing.T) {
	tests := []struct {
		name     string
		primary  string
		networks map[string]string
		want     string
	}{
		{"primary wins", "10.0.0.1", map[string]string{"bridge": "172.17.0.2"}, "10.0.0.1"},
		{"bridge preferred", "", map[string]string{"app": "10.1.0.2", "bridge": "172.17.0.2"}, "172.17.0.2"},
		{"first by name", "", map[string]string{"zeta": "10.9.0.2", "alpha": "10.1.0.2"}, "10.1.0.2"},
		{"skips empty", "", map[string]string{"alpha": "", "beta": "10.2.0.2"}, "10.2.0.2"},
		{"none", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickAddress(tt.primary, tt.networks))
		})
	}
}
