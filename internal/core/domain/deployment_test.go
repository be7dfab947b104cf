package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActivePerImage_EarliestWins(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []DeploymentRecord{
		NewDeploymentRecord("b2", "org/b", DeploymentConfig{}, base.Add(2*time.Minute)),
		NewDeploymentRecord("a1", "org/a", DeploymentConfig{}, base),
		NewDeploymentRecord("b1", "org/b", DeploymentConfig{}, base.Add(time.Minute)),
		NewDeploymentRecord("a2", "org/a", DeploymentConfig{}, base.Add(time.Hour)),
	}

	active := ActivePerImage(records)

	if assert.Len(t, active, 2) {
		assert.Equal(t, "a1", active[0].ContainerID)
		assert.Equal(t, "org/a", active[0].Image)
		assert.Equal(t, "b1", active[1].ContainerID)
		assert.Equal(t, "org/b", active[1].Image)
	}
}

func TestActivePerImage_TieBreaksOnID(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []DeploymentRecord{
		NewDeploymentRecord("zz", "org/a", DeploymentConfig{}, at),
		NewDeploymentRecord("aa", "org/a", DeploymentConfig{}, at),
	}

	active := ActivePerImage(records)
	if assert.Len(t, active, 1) {
		assert.Equal(t, "aa", active[0].ContainerID)
	}
}

func TestActivePerImage_Empty(t *testing.T) {
	assert.Empty(t, ActivePerImage(nil))
}

func TestNewDeploymentRecord_UTC(t *testing.T) {
	local := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	rec := NewDeploymentRecord("c", "org/a", DeploymentConfig{}, local)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.True(t, rec.CreatedAt.Equal(local))
}
