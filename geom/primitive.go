package geom

// Primitive is the trait the kd-tree core consumes from a mesh collaborator.
// It is the sole point of contact between the spatial index and scene
// representation: the builder and traverser never know about vertices,
// materials, or mesh topology beyond what this interface exposes.
//
// Implementations must be safe for unlimited concurrent read access once
// construction of the backing mesh data is complete; the builder's worker
// pool and the traverser's concurrent queries both call these methods from
// multiple goroutines without external synchronization.
type Primitive interface {
	// PrimitiveCount returns the number of primitives the adapter exposes.
	PrimitiveCount() uint32

	// BoundingBox returns the axis-aligned bounding box of primitive idx.
	// A box with Min > Max on some axis (see AABB.Valid) is an
	// IntegrityError at the call site.
	BoundingBox(idx uint32) AABB

	// ClippedBoundingBox returns the bounding box of primitive idx clipped
	// against clip, computed via Sutherland-Hodgman polygon clipping
	// against the six axis-aligned planes of clip in double precision.
	// Returns an empty box (see AABB.Empty) if the primitive lies entirely
	// outside clip.
	ClippedBoundingBox(idx uint32, clip AABB) AABB

	// IntersectDetailed computes a full ray/primitive intersection,
	// writing barycentric coordinates on success. Implementations should
	// use a numerically robust test (e.g. Moller-Trumbore for triangles).
	IntersectDetailed(idx uint32, r Ray) (Hit, bool)

	// IntersectAny is the shadow-ray entry point: it reports only whether
	// an intersection exists in [r.TMin, r.TMax], and returns neither
	// barycentrics nor the t value.
	IntersectAny(idx uint32, r Ray) bool
}
