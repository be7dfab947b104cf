// Package http exposes deployments over a JSON API.
package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/lighthouse-deploy/internal/core/deploy"
	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/melih/lighthouse-deploy/internal/core/ports"
	"github.com/melih/lighthouse-deploy/internal/core/synth"
)

// Deployer is the part of the orchestrator the API drives.
type Deployer interface {
	Deploy(ctx context.Context, req deploy.Request) (*deploy.Result, error)
	Undeploy(ctx context.Context, containerID, proxyOutput string) ([]error, error)
	RenderProxy(ctx context.Context) (string, []synth.Skipped, error)
}

// ContainerLister reports the containers known to the engine.
type ContainerLister interface {
	ListContainers(ctx context.Context) ([]domain.Container, error)
}

// DeploymentHandler serves the deployment API.
type DeploymentHandler struct {
	deployer    Deployer
	registry    ports.Registry
	containers  ContainerLister
	logs        ports.LogStreamer
	proxyOutput string
	inflight    *inflight
}

// NewDeploymentHandler creates a handler. proxyOutput, when set, is passed to
// every deploy and undeploy so the proxy configuration is republished.
func NewDeploymentHandler(deployer Deployer, registry ports.Registry, containers ContainerLister, logs ports.LogStreamer, proxyOutput string) *DeploymentHandler {
	return &DeploymentHandler{
		deployer:    deployer,
		registry:    registry,
		containers:  containers,
		logs:        logs,
		proxyOutput: proxyOutput,
		inflight:    newInflight(),
	}
}

// DeploymentResponse is the API view of a registry record.
type DeploymentResponse struct {
	ContainerID string            `json:"container_id"`
	Image       string            `json:"image"`
	Name        string            `json:"name,omitempty"`
	Ports       map[string]string `json:"ports,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toDeploymentResponse(rec domain.DeploymentRecord) DeploymentResponse {
	return DeploymentResponse{
		ContainerID: rec.ContainerID,
		Image:       rec.Image,
		Name:        rec.Config.Name,
		Ports:       rec.Config.Ports,
		CreatedAt:   rec.CreatedAt,
	}
}

func (h *DeploymentHandler) ListDeployments(c *fiber.Ctx) error {
	records, err := h.registry.List(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	out := make([]DeploymentResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toDeploymentResponse(rec))
	}
	return c.JSON(out)
}

type DeployRequest struct {
	Source   string `json:"source"`
	Basename string `json:"basename"`
}

type DeployResponse struct {
	ContainerID   string   `json:"container_id"`
	ContainerName string   `json:"container_name"`
	Image         string   `json:"image"`
	Address       string   `json:"address,omitempty"`
	Revision      string   `json:"revision,omitempty"`
	Replaced      []string `json:"replaced"`
	Warnings      []string `json:"warnings"`
}

func (h *DeploymentHandler) CreateDeployment(c *fiber.Ctx) error {
	var req DeployRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Source == "" || req.Basename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "source and basename are required",
		})
	}

	// Deployments of one image must not overlap.
	if !h.inflight.acquire(req.Basename) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "a deployment of " + req.Basename + " is already in progress",
		})
	}
	defer h.inflight.release(req.Basename)

	result, err := h.deployer.Deploy(c.Context(), deploy.Request{
		Source:      req.Source,
		Basename:    req.Basename,
		ProxyOutput: h.proxyOutput,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(DeployResponse{
		ContainerID:   result.ContainerID,
		ContainerName: result.ContainerName,
		Image:         result.Image,
		Address:       result.Address,
		Revision:      result.Revision,
		Replaced:      nonNil(result.Replaced),
		Warnings:      errorStrings(result.Warnings),
	})
}

func (h *DeploymentHandler) DeleteDeployment(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Container ID is required",
		})
	}

	warnings, err := h.deployer.Undeploy(c.Context(), id, h.proxyOutput)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"container_id": id,
		"warnings":     errorStrings(warnings),
	})
}

func (h *DeploymentHandler) ListContainers(c *fiber.Ctx) error {
	containers, err := h.containers.ListContainers(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	managed := make([]domain.Container, 0, len(containers))
	for _, ctr := range containers {
		if _, ok := ctr.Labels[domain.LabelDeployment]; ok || c.QueryBool("all") {
			managed = append(managed, ctr)
		}
	}
	return c.JSON(managed)
}

func (h *DeploymentHandler) GetContainerLogs(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Container ID is required",
		})
	}

	logs, err := h.logs.ContainerLogs(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	// fasthttp closes the stream once the body has been written.
	c.Set("Content-Type", "text/plain")
	return c.SendStream(logs)
}

func (h *DeploymentHandler) GetProxyConfig(c *fiber.Ctx) error {
	text, skipped, err := h.deployer.RenderProxy(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	for _, s := range skipped {
		c.Append("X-Lighthouse-Skipped", s.ContainerID)
	}
	c.Set("Content-Type", "text/plain")
	return c.SendString(text)
}

// errorResponse maps an error to a status code using its kind.
func errorResponse(c *fiber.Ctx, err error) error {
	kind := err
	body := fiber.Map{"error": err.Error()}

	var derr *deploy.Error
	if errors.As(err, &derr) {
		kind = derr.Kind
		body["kind"] = derr.Kind.Error()
		body["phase"] = derr.Phase.String()
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(kind, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(kind, domain.ErrConfigParse), errors.Is(kind, domain.ErrSourceUnavailable):
		status = fiber.StatusBadRequest
	case errors.Is(kind, domain.ErrDuplicateKey), errors.Is(kind, domain.ErrAmbiguousID):
		status = fiber.StatusConflict
	case errors.Is(kind, domain.ErrCancelled):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(body)
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
