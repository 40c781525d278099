package geom

import "math"

// AABB is an axis-aligned bounding box. A box is well-formed when Min <= Max
// componentwise; degenerate boxes (zero extent on some axis) are permitted
// and are reported as zero surface area by SurfaceArea.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns a box with Min at +Inf and Max at -Inf on every axis,
// the identity element for Union: unioning it with any box yields that box.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Valid reports whether the box is well-formed, i.e. Min <= Max on every
// axis. A box returned by a geometry adapter that fails this check is an
// IntegrityError at the call site.
func (b AABB) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Empty reports whether the box contains no points, i.e. some axis has
// Min > Max. This is distinct from a degenerate (zero-extent) box, which is
// Valid but has zero surface area on the flattened axis.
func (b AABB) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extent returns Max - Min componentwise.
func (b AABB) Extent() Vec3 {
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns the total surface area of the box. Degenerate
// (zero-extent) boxes correctly report zero area on the flattened face
// pair and nonzero area on the rest.
func (b AABB) SurfaceArea() float64 {
	if b.Empty() {
		return 0
	}
	d := b.Extent()
	return 2 * (d.X*d.Y + d.X*d.Z + d.Y*d.Z)
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// UnionPoint returns the smallest box containing b and p.
func (b AABB) UnionPoint(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Intersect returns the overlap of b and o. The result may be Empty.
func (b AABB) Intersect(o AABB) AABB {
	return AABB{Min: b.Min.Max(o.Min), Max: b.Max.Min(o.Max)}
}

// Expand grows the box outward by eps*extent + eps on every axis, per side.
// The builder applies this once to the root box after construction to paper
// over degenerate scenes (spec: epsilon = 1e-3).
func (b AABB) Expand(eps float64) AABB {
	d := b.Extent()
	pad := Vec3{
		X: d.X*eps + eps,
		Y: d.Y*eps + eps,
		Z: d.Z*eps + eps,
	}
	return AABB{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

// ClipAxis clamps the box to [lo, hi] along axis a, returning a possibly
// empty result.
func (b AABB) ClipAxis(a Axis, lo, hi float64) AABB {
	out := b
	switch a {
	case AxisX:
		out.Min.X = math.Max(out.Min.X, lo)
		out.Max.X = math.Min(out.Max.X, hi)
	case AxisY:
		out.Min.Y = math.Max(out.Min.Y, lo)
		out.Max.Y = math.Min(out.Max.Y, hi)
	case AxisZ:
		out.Min.Z = math.Max(out.Min.Z, lo)
		out.Max.Z = math.Min(out.Max.Z, hi)
	}
	return out
}

// IntersectRay clips [tmin, tmax] against the box using the slab method,
// returning the (possibly narrowed) interval and whether any overlap
// remains. A degenerate ray direction component (Rcp == +-Inf) is handled
// correctly by IEEE-754 semantics: a parallel ray outside the slab produces
// an empty interval, one running through the slab leaves it unchanged.
func (b AABB) IntersectRay(r Ray, tmin, tmax float64) (float64, float64, bool) {
	for _, a := range [3]Axis{AxisX, AxisY, AxisZ} {
		o := r.Origin.Get(a)
		rcp := r.DRcp.Get(a)
		t0 := (b.Min.Get(a) - o) * rcp
		t1 := (b.Max.Get(a) - o) * rcp
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
		if tmin > tmax {
			return tmin, tmax, false
		}
	}
	return tmin, tmax, true
}
