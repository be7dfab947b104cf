package domain

import (
	"sort"
	"time"
)

// DeploymentRecord is the registry entry for the container currently serving
// an image. Records are created after a successful start, deleted when the
// container is decommissioned, and never updated.
type DeploymentRecord struct {
	ContainerID string
	Image       string // organization/name
	Config      DeploymentConfig
	CreatedAt   time.Time
}

// NewDeploymentRecord stamps a record with the given creation time.
func NewDeploymentRecord(containerID, image string, cfg DeploymentConfig, now time.Time) DeploymentRecord {
	return DeploymentRecord{
		ContainerID: containerID,
		Image:       image,
		Config:      cfg,
		CreatedAt:   now.UTC(),
	}
}

// ActivePerImage returns one record per image, the earliest created one in
// each group. Ties on CreatedAt are broken by container ID. The result is
// ordered by image.
func ActivePerImage(records []DeploymentRecord) []DeploymentRecord {
	earliest := make(map[string]DeploymentRecord, len(records))
	for _, r := range records {
		cur, ok := earliest[r.Image]
		if !ok || r.CreatedAt.Before(cur.CreatedAt) ||
			(r.CreatedAt.Equal(cur.CreatedAt) && r.ContainerID < cur.ContainerID) {
			earliest[r.Image] = r
		}
	}

	out := make([]DeploymentRecord, 0, len(earliest))
	for _, r := range earliest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Image < out[j].Image })
	return out
}
