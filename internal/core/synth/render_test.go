package synth

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSynthesizer() *Synthesizer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRecord(t *testing.T, id, image, descriptor string) domain.DeploymentRecord {
	t.Helper()
	cfg, err := domain.ParseDeploymentConfig([]byte(descriptor))
	require.NoError(t, err)
	return domain.NewDeploymentRecord(id, image, *cfg, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

const svcDescriptor = `
ports: {80: 8080}
environment: {}
name: svc
proxy:
  keys:
    - listen: "80"
  locations:
    "/":
      - proxy_pass: "http://{CONTAINER_IP}"
`

func TestRender_SingleRecord(t *testing.T) {
	s := setupTestSynthesizer()
	rec := testRecord(t, "C1", "org/svc", svcDescriptor)
	live := map[string]domain.Container{"C1": {ID: "C1", IPAddress: "10.0.0.9", State: "running"}}

	out, err := s.Render([]domain.DeploymentRecord{rec}, live)
	require.NoError(t, err)

	want := `# org/svc
server {
    listen 80;
    location / {
        proxy_pass http://10.0.0.9;
    }
}
`
	assert.Equal(t, want, out)
}

func TestRender_SkipsMissingContainer(t *testing.T) {
	s := setupTestSynthesizer()
	gone := testRecord(t, "C0", "org/old", svcDescriptor)
	here := testRecord(t, "C1", "org/svc", svcDescriptor)
	live := map[string]domain.Container{"C1": {ID: "C1", IPAddress: "10.0.0.9"}}

	doc, skipped, err := s.Build([]domain.DeploymentRecord{gone, here}, live)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "C0", skipped[0].ContainerID)
	assert.ErrorIs(t, skipped[0].Kind, domain.ErrNotFound)

	out, err := s.Render([]domain.DeploymentRecord{gone, here}, live)
	require.NoError(t, err)
	assert.Len(t, doc.Children, 2)
	assert.NotContains(t, out, "org/old")
	assert.Equal(t, 1, strings.Count(out, "server {"))
}

func TestBuild_SkipsInvalidProxySettings(t *testing.T) {
	s := setupTestSynthesizer()
	bad := testRecord(t, "C0", "org/bad", svcDescriptor)
	bad.Config.Proxy.Locations = domain.Locations{{Path: "~ ^/v[0-9]{2}/"}}
	here := testRecord(t, "C1", "org/svc", svcDescriptor)
	live := map[string]domain.Container{
		"C0": {ID: "C0", IPAddress: "10.0.0.8"},
		"C1": {ID: "C1", IPAddress: "10.0.0.9"},
	}

	doc, skipped, err := s.Build([]domain.DeploymentRecord{bad, here}, live)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "C0", skipped[0].ContainerID)
	assert.ErrorIs(t, skipped[0].Kind, domain.ErrConfigParse)
	assert.Len(t, doc.Children, 2)
}

func TestRender_NothingLive(t *testing.T) {
	s := setupTestSynthesizer()
	rec := testRecord(t, "C1", "org/svc", svcDescriptor)

	out, err := s.Render([]domain.DeploymentRecord{rec}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestRender_KeepsRecordAndDeclarationOrder(t *testing.T) {
	s := setupTestSynthesizer()
	a := testRecord(t, "A", "org/a", `
proxy:
  keys:
    - listen: "80"
      server_name: a.example.com
    - client_max_body_size: 10m
  locations:
    /static:
      - root: /srv/static
    /:
      - proxy_pass: "http://{CONTAINER_IP}:3000"
      - proxy_set_header: Host $host
`)
	b := testRecord(t, "B", "org/b", `
proxy:
  keys:
    - listen: "81"
`)
	live := map[string]domain.Container{
		"A": {ID: "A", IPAddress: "172.17.0.2"},
		"B": {ID: "B", IPAddress: "172.17.0.3"},
	}

	out, err := s.Render([]domain.DeploymentRecord{a, b}, live)
	require.NoError(t, err)

	want := `# org/a
server {
    listen 80;
    server_name a.example.com;
    client_max_body_size 10m;
    location /static {
        root /srv/static;
    }
    location / {
        proxy_pass http://172.17.0.2:3000;
        proxy_set_header Host $host;
    }
}
# org/b
server {
    listen 81;
}
`
	assert.Equal(t, want, out)
}

func TestRender_UnresolvedPlaceholder(t *testing.T) {
	s := setupTestSynthesizer()
	rec := testRecord(t, "C1", "org/svc", `
proxy:
  keys:
    - proxy_pass: "http://{UPSTREAM}"
`)
	live := map[string]domain.Container{"C1": {ID: "C1", IPAddress: "10.0.0.9"}}

	_, err := s.Render([]domain.DeploymentRecord{rec}, live)
	assert.ErrorIs(t, err, domain.ErrUnresolvedPlaceholder)
}

func TestRender_Deterministic(t *testing.T) {
	s := setupTestSynthesizer()
	live := map[string]domain.Container{"C1": {ID: "C1", IPAddress: "10.0.0.9"}}

	first, err := s.Render([]domain.DeploymentRecord{testRecord(t, "C1", "org/svc", svcDescriptor)}, live)
	require.NoError(t, err)
	second, err := s.Render([]domain.DeploymentRecord{testRecord(t, "C1", "org/svc", svcDescriptor)}, live)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
