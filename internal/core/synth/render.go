// Package synth builds reverse proxy configuration from registry records and
// live container state.
package synth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/melih/lighthouse-deploy/internal/core/proxyconf"
)

// Synthesizer turns deployment records into a proxy configuration document.
type Synthesizer struct {
	logger *slog.Logger
}

// New creates a Synthesizer. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{logger: logger}
}

// Skipped describes a record left out of a rendering. Kind is
// domain.ErrNotFound when the container is gone and domain.ErrConfigParse
// when the recorded proxy settings cannot be rendered.
type Skipped struct {
	ContainerID string
	Image       string
	Reason      string
	Kind        error
}

// Build returns one commented server block per record whose container is in
// live, in record order. Records without a live container, or whose proxy
// settings are not valid directives, are reported in the returned Skipped
// list and logged; they do not fail the build.
func (s *Synthesizer) Build(records []domain.DeploymentRecord, live map[string]domain.Container) (*proxyconf.Block, []Skipped, error) {
	doc := proxyconf.NewDocument()
	var skipped []Skipped

	for _, rec := range records {
		c, ok := live[rec.ContainerID]
		if !ok {
			s.logger.Warn("container not running for this image",
				"image", rec.Image, "container_id", rec.ContainerID)
			skipped = append(skipped, Skipped{
				ContainerID: rec.ContainerID,
				Image:       rec.Image,
				Reason:      "container not running for this image",
				Kind:        domain.ErrNotFound,
			})
			continue
		}

		server, err := serverBlock(rec.Config.Proxy, Substitutions{ContainerIP: c.IPAddress})
		if errors.Is(err, proxyconf.ErrInvalidNode) {
			s.logger.Warn("invalid proxy settings",
				"image", rec.Image, "container_id", rec.ContainerID, "error", err)
			skipped = append(skipped, Skipped{
				ContainerID: rec.ContainerID,
				Image:       rec.Image,
				Reason:      "invalid proxy settings: " + err.Error(),
				Kind:        domain.ErrConfigParse,
			})
			continue
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("image %s: %w", rec.Image, err)
		}
		if err := doc.Add(proxyconf.NewComment(rec.Image)); err != nil {
			return nil, skipped, err
		}
		if err := doc.Add(server); err != nil {
			return nil, skipped, err
		}
	}
	return doc, skipped, nil
}

// Render builds the document and serializes it.
func (s *Synthesizer) Render(records []domain.DeploymentRecord, live map[string]domain.Container) (string, error) {
	doc, _, err := s.Build(records, live)
	if err != nil {
		return "", err
	}
	return proxyconf.Serialize(doc), nil
}

func serverBlock(settings domain.ProxySettings, subs Substitutions) (*proxyconf.Block, error) {
	server := proxyconf.NewBlock("server")
	if err := addDirectives(server, settings.Keys, subs); err != nil {
		return nil, err
	}
	for _, loc := range settings.Locations {
		block := proxyconf.NewBlock("location " + loc.Path)
		if err := addDirectives(block, loc.Directives, subs); err != nil {
			return nil, fmt.Errorf("location %s: %w", loc.Path, err)
		}
		if err := server.Add(block); err != nil {
			return nil, err
		}
	}
	return server, nil
}

func addDirectives(parent *proxyconf.Block, groups []domain.DirectiveGroup, subs Substitutions) error {
	for _, group := range groups {
		for _, d := range group {
			value, err := Resolve(d.Value, subs)
			if err != nil {
				return err
			}
			if err := parent.Add(proxyconf.NewDirective(d.Name, value)); err != nil {
				return err
			}
		}
	}
	return nil
}
