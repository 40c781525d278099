package geom

import "errors"

// Sentinel errors for geometry adapter validation. Callers should use
// errors.Is against these to distinguish error kinds across package
// boundaries, matching the sentinel-error convention used throughout this
// module.
var (
	// ErrInvalidBoundingBox indicates a geometry adapter returned a box
	// with Min > Max on some axis.
	ErrInvalidBoundingBox = errors.New("geom: invalid bounding box (min > max)")
)
