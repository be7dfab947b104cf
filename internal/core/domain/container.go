package domain

// Container is a snapshot of a container as reported by the engine. It is only
// used while orchestrating and rendering and is never persisted.
type Container struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Image     string            `json:"image"`
	Status    string            `json:"status"`
	State     string            `json:"state"` // running, exited, etc.
	IPAddress string            `json:"ip_address"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Running reports whether the engine considers the container running.
func (c Container) Running() bool {
	return c.State == "running"
}

// IndexByID builds a lookup of containers keyed by their full identifier.
func IndexByID(containers []Container) map[string]Container {
	index := make(map[string]Container, len(containers))
	for _, c := range containers {
		index[c.ID] = c
	}
	return index
}

// Image describes the parts of a built image the orchestrator cares about.
type Image struct {
	ID      string
	Tag     string
	Volumes []string // declared VOLUME paths, sorted
}

// ContainerSpec is everything needed to create a container for a deployment.
type ContainerSpec struct {
	Image  string
	Name   string
	Env    map[string]string
	Ports  PortMap
	Binds  []string
	Labels map[string]string
}

// Labels attached to every container created by a deployment.
const (
	LabelDeployment = "lighthouse.deployment"
	LabelImage      = "lighthouse.image"
	LabelRevision   = "lighthouse.revision"
)

// BuildEvent is one decoded entry of an image build stream. Exactly one of
// Line and ErrorDetail is meaningful.
type BuildEvent struct {
	Line        string
	ErrorDetail string
}

// Failed reports whether the event carries a build error.
func (e BuildEvent) Failed() bool {
	return e.ErrorDetail != ""
}
