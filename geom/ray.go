package geom

import "math"

// defaultRayEpsilon is the minimum parametric offset used to push a ray's
// origin away from a surface it just left, avoiding self-intersection.
const defaultRayEpsilon = 1e-4

// Ray is a parametric ray o + t*d, valid for t in [TMin, TMax]. DRcp must be
// kept consistent with Dir (it is not recomputed by intersection routines);
// use NewRay to construct a Ray so the two never drift apart.
type Ray struct {
	Origin Vec3
	Dir    Vec3
	DRcp   Vec3
	TMin   float64
	TMax   float64
}

// NewRay builds a Ray with a consistent DRcp and default [epsilon, +Inf)
// interval, scaling the minimum epsilon by the origin's magnitude to
// counter precision loss when the origin is far from the scene origin.
func NewRay(origin, dir Vec3) Ray {
	tmin := defaultRayEpsilon
	mag := math.Max(math.Abs(origin.X), math.Max(math.Abs(origin.Y), math.Abs(origin.Z)))
	if mag > 1 {
		tmin = math.Max(tmin, tmin*mag)
	}
	return Ray{
		Origin: origin,
		Dir:    dir,
		DRcp:   dir.Reciprocal(),
		TMin:   tmin,
		TMax:   math.Inf(1),
	}
}

// At evaluates the ray at parameter t.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Dir.Scale(t))
}

// WithInterval returns a copy of r with a narrowed [tmin, tmax] interval,
// used by shadow-ray tests that probe just past or short of a known hit.
func (r Ray) WithInterval(tmin, tmax float64) Ray {
	r.TMin = tmin
	r.TMax = tmax
	return r
}

// Hit describes a successful ray/primitive intersection.
type Hit struct {
	T    float64
	U, V float64
	Prim uint32
}
