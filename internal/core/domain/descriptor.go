package domain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/melih/lighthouse-deploy/internal/core/proxyconf"
	"gopkg.in/yaml.v3"
)

// DefaultDescriptorName is the descriptor file looked up in a source tree.
const DefaultDescriptorName = "deploy.yaml"

// DeploymentConfig is the typed deployment descriptor read from a source tree.
type DeploymentConfig struct {
	Ports       PortMap           `yaml:"ports,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Name        string            `yaml:"name,omitempty"`
	Proxy       ProxySettings     `yaml:"proxy,omitempty"`
}

// ProxySettings holds the proxy directives a deployment contributes to its
// server block.
type ProxySettings struct {
	Keys      []DirectiveGroup `yaml:"keys,omitempty"`
	Locations Locations        `yaml:"locations,omitempty"`
}

// Directive is a single declared proxy directive. Value may contain
// placeholders that are resolved at render time.
type Directive struct {
	Name  string
	Value string
}

// DirectiveGroup is one {directive: value} mapping. Declaration order is kept.
type DirectiveGroup []Directive

// UnmarshalYAML decodes a mapping node while keeping key order.
func (g *DirectiveGroup) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: directive group must be a mapping of directive to value", node.Line)
	}
	out := make(DirectiveGroup, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || strings.TrimSpace(key.Value) == "" {
			return fmt.Errorf("line %d: directive name must be a non-empty scalar", key.Line)
		}
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of directive %q must be a scalar", value.Line, key.Value)
		}
		out = append(out, Directive{Name: key.Value, Value: value.Value})
	}
	*g = out
	return nil
}

// MarshalYAML encodes the group as an ordered mapping.
func (g DirectiveGroup) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range g {
		node.Content = append(node.Content, stringNode(d.Name), stringNode(d.Value))
	}
	return node, nil
}

// Location is a location block declared by path.
type Location struct {
	Path       string
	Directives []DirectiveGroup
}

// Locations is an ordered mapping of location path to directive groups.
type Locations []Location

// UnmarshalYAML decodes a mapping of path to directive groups, keeping the
// order the paths were declared in.
func (l *Locations) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: locations must be a mapping of path to directives", node.Line)
	}
	seen := make(map[string]bool, len(node.Content)/2)
	out := make(Locations, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || strings.TrimSpace(key.Value) == "" {
			return fmt.Errorf("line %d: location path must be a non-empty scalar", key.Line)
		}
		if seen[key.Value] {
			return fmt.Errorf("line %d: location %q declared twice", key.Line, key.Value)
		}
		seen[key.Value] = true

		var groups []DirectiveGroup
		if err := value.Decode(&groups); err != nil {
			return fmt.Errorf("location %q: %w", key.Value, err)
		}
		out = append(out, Location{Path: key.Value, Directives: groups})
	}
	*l = out
	return nil
}

// MarshalYAML encodes the locations as an ordered mapping.
func (l Locations) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, loc := range l {
		var value yaml.Node
		if err := value.Encode(loc.Directives); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, stringNode(loc.Path), &value)
	}
	return node, nil
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// PortMap maps a container port ("80" or "53/udp") to a host binding
// ("8080", "127.0.0.1:8080" or empty for an ephemeral port).
type PortMap map[string]string

// Specs returns the mappings in docker port-spec form, sorted.
func (p PortMap) Specs() []string {
	specs := make([]string, 0, len(p))
	for containerPort, host := range p {
		if host == "" {
			specs = append(specs, containerPort)
			continue
		}
		specs = append(specs, host+":"+containerPort)
	}
	sort.Strings(specs)
	return specs
}

// Validate checks every mapping parses as a docker port spec.
func (p PortMap) Validate() error {
	for _, spec := range p.Specs() {
		if _, _, err := nat.ParsePortSpecs([]string{spec}); err != nil {
			return fmt.Errorf("port %q: %w", spec, err)
		}
	}
	return nil
}

// Env returns the environment as sorted KEY=value pairs.
func (c DeploymentConfig) Env() []string {
	env := make([]string, 0, len(c.Environment))
	for k, v := range c.Environment {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// ContainerName returns the declared container name, falling back to the
// deployment basename.
func (c DeploymentConfig) ContainerName(basename string) string {
	if c.Name != "" {
		return c.Name
	}
	return basename
}

// Validate reports every schema violation found in the descriptor.
func (c DeploymentConfig) Validate() error {
	var errs []error
	if err := c.Ports.Validate(); err != nil {
		errs = append(errs, err)
	}
	for k := range c.Environment {
		if k == "" || strings.ContainsAny(k, "= \t\n") {
			errs = append(errs, fmt.Errorf("invalid environment variable name %q", k))
		}
	}
	if c.Name != "" && strings.ContainsAny(c.Name, "/ \t\n:") {
		errs = append(errs, fmt.Errorf("invalid container name %q", c.Name))
	}
	errs = append(errs, checkDirectives("proxy keys", c.Proxy.Keys)...)
	for i, loc := range c.Proxy.Locations {
		if !strings.HasPrefix(loc.Path, "/") && !strings.HasPrefix(loc.Path, "~") && !strings.HasPrefix(loc.Path, "=") && !strings.HasPrefix(loc.Path, "@") {
			errs = append(errs, fmt.Errorf("location %d: path %q must start with '/', '=', '~' or '@'", i, loc.Path))
		}
		if err := proxyconf.CheckBlockName("location " + loc.Path); err != nil {
			errs = append(errs, fmt.Errorf("location %q: path must not contain braces, ';' or line breaks: %w", loc.Path, err))
		}
		errs = append(errs, checkDirectives("location "+loc.Path, loc.Directives)...)
	}
	return errors.Join(errs...)
}

// checkDirectives applies the proxy config tree's key and value rules so a
// descriptor that parses can always be rendered.
func checkDirectives(where string, groups []DirectiveGroup) []error {
	var errs []error
	for _, group := range groups {
		for _, d := range group {
			if err := proxyconf.CheckKey(d.Name); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
			}
			if err := proxyconf.CheckValue(d.Value); err != nil {
				errs = append(errs, fmt.Errorf("%s: directive %s: %w", where, d.Name, err))
			}
		}
	}
	return errs
}

// ParseDeploymentConfig decodes and validates a descriptor. Unknown keys are
// rejected. Every failure wraps ErrConfigParse.
func ParseDeploymentConfig(data []byte) (*DeploymentConfig, error) {
	cfg, err := DecodeDeploymentConfig(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	return cfg, nil
}

// DecodeDeploymentConfig decodes a descriptor without validating it. Stored
// records use it so rules added later do not make them unreadable.
func DecodeDeploymentConfig(data []byte) (*DeploymentConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg DeploymentConfig
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: descriptor is empty", ErrConfigParse)
		}
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	return &cfg, nil
}

// LoadDeploymentConfig reads the descriptor named name from dir.
func LoadDeploymentConfig(dir, name string) (*DeploymentConfig, error) {
	if name == "" {
		name = DefaultDescriptorName
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfigParse, name, err)
	}
	return ParseDeploymentConfig(data)
}

// Marshal encodes the descriptor back to YAML.
func (c DeploymentConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
