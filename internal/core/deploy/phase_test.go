package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhase_CanTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseLoading, PhaseDiscovering, true},
		{PhaseDiscovering, PhaseBuilding, true},
		{PhaseBuilding, PhaseCreating, true},
		{PhaseBuilding, PhaseStarting, false},
		{PhaseCreating, PhaseStarting, true},
		{PhaseStarting, PhaseRecording, true},
		{PhaseRecording, PhaseDecommissioning, true},
		{PhaseDecommissioning, PhaseRendering, true},
		{PhaseDecommissioning, PhaseDone, true},
		{PhaseRendering, PhaseDone, true},
		{PhaseRendering, PhaseDecommissioning, false},
		{PhaseBuilding, PhaseFailed, true},
		{PhaseRendering, PhaseFailed, true},
		{PhaseDone, PhaseFailed, false},
		{PhaseFailed, PhaseLoading, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "decommissioning", PhaseDecommissioning.String())
	assert.Equal(t, "unknown", Phase(0).String())
}
