package domain

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// ImageName returns the organization/name tag for a deployment basename.
func ImageName(org, basename string) string {
	return org + "/" + basename
}

// BuildTag returns the tag images are built and run with.
func BuildTag(org, basename string) string {
	return ImageName(org, basename) + ":latest"
}

// ValidateImageName checks that org/basename forms a valid image reference.
func ValidateImageName(org, basename string) error {
	if org == "" || basename == "" {
		return fmt.Errorf("organization and basename are required")
	}
	if strings.Contains(org, "/") {
		return fmt.Errorf("organization %q must not contain '/'", org)
	}
	if strings.Contains(basename, "/") {
		return fmt.Errorf("basename %q must not contain '/'", basename)
	}
	named, err := reference.ParseNormalizedNamed(BuildTag(org, basename))
	if err != nil {
		return fmt.Errorf("invalid image name %q: %w", ImageName(org, basename), err)
	}
	// An org that looks like a registry host ("Acme", "reg.io", "host:5000")
	// parses as one; images are always local org/basename names.
	if reference.Domain(named) != "docker.io" || reference.Path(named) != ImageName(org, basename) {
		return fmt.Errorf("invalid image name %q: organization must be a lowercase path component", ImageName(org, basename))
	}
	return nil
}

// SameImage reports whether two image references name the same tag, treating
// an omitted tag as "latest" (so "org/svc" matches "org/svc:latest").
func SameImage(a, b string) bool {
	na, err := normalize(a)
	if err != nil {
		return a == b
	}
	nb, err := normalize(b)
	if err != nil {
		return a == b
	}
	return na == nb
}

func normalize(ref string) (string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", err
	}
	return reference.TagNameOnly(named).String(), nil
}
