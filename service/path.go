package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// MaxImageDimension bounds a single resize axis in pixels.
	MaxImageDimension = 10000

	// MaxNameLength bounds the logical asset name.
	MaxNameLength = 10000
)

// dimensionToken renders an absent dimension literally as "null" so that
// absent-width and absent-height stay distinguishable in the storage key.
func dimensionToken(d *int) string {
	if d == nil {
		return "null"
	}
	return strconv.Itoa(*d)
}

func validateDimension(d *int, maxDimension int) bool {
	return d == nil || (*d > 0 && *d <= maxDimension)
}

// validateDimensions checks a (width, height) pair: each present value must
// be a positive integer within bounds, and at least one must be present.
func validateDimensions(width, height *int, maxDimension int) error {
	if maxDimension <= 0 {
		maxDimension = MaxImageDimension
	}
	if !validateDimension(width, maxDimension) || !validateDimension(height, maxDimension) {
		return fmt.Errorf("%w: dimension out of range (1-%d)", ErrInvalidArgument, maxDimension)
	}
	if width == nil && height == nil {
		return fmt.Errorf("%w: at least one of width and height is required", ErrInvalidArgument)
	}
	return nil
}

// GenerateImagePath maps a logical name and size descriptor to the storage
// key "{name}-{width}w-{height}h". Keys are deterministic and collision-free
// for distinct (name, width, height) triples.
func GenerateImagePath(name string, width, height *int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: image name must be 1-%d characters", ErrInvalidArgument, MaxNameLength)
	}
	if err := validateDimensions(width, height, MaxImageDimension); err != nil {
		return "", err
	}
	return name + "-" + dimensionToken(width) + "w-" + dimensionToken(height) + "h", nil
}

// ImagePathFromURL extracts the storage key back out of a public object URL.
// The key is the last path segment; this must match exactly what the gateway
// used as the object key or later deletes and copies target the wrong object.
func ImagePathFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return "", fmt.Errorf("%w: malformed object URL %q", ErrInvalidArgument, rawURL)
	}
	segments := strings.Split(strings.TrimSuffix(parsed.Path, "/"), "/")
	key := segments[len(segments)-1]
	if key == "" {
		return "", fmt.Errorf("%w: object URL %q has no path", ErrInvalidArgument, rawURL)
	}
	return key, nil
}
