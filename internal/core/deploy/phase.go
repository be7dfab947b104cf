package deploy

// Phase is a step of a single deployment run.
type Phase uint8

const (
	PhaseLoading Phase = iota + 1
	PhaseDiscovering
	PhaseBuilding
	PhaseCreating
	PhaseStarting
	PhaseRecording
	PhaseDecommissioning
	PhaseRendering
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseDiscovering:
		return "discovering"
	case PhaseBuilding:
		return "building"
	case PhaseCreating:
		return "creating"
	case PhaseStarting:
		return "starting"
	case PhaseRecording:
		return "recording"
	case PhaseDecommissioning:
		return "decommissioning"
	case PhaseRendering:
		return "rendering"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// CanTransition reports whether a run may move from p to next. Every
// non-terminal phase may fail; otherwise phases advance strictly in order,
// with Rendering optional.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	switch p {
	case PhaseDecommissioning:
		return next == PhaseRendering || next == PhaseDone
	case PhaseRendering:
		return next == PhaseDone
	default:
		return next == p+1
	}
}
