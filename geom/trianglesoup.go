package geom

import "math"

// moellerTrumboreEpsilon bounds the denominator below which a ray is
// considered parallel to the triangle's plane.
const moellerTrumboreEpsilon = 1e-9

// Mesh is a single triangle mesh: a flat vertex array and a flat index
// array of (v0, v1, v2) triples, one triple per triangle.
type Mesh struct {
	Vertices []Vec3
	Indices  []uint32 // len == 3*triangleCount
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() uint32 {
	return uint32(len(m.Indices) / 3)
}

func (m *Mesh) triangle(local uint32) (v0, v1, v2 Vec3) {
	base := local * 3
	return m.Vertices[m.Indices[base]], m.Vertices[m.Indices[base+1]], m.Vertices[m.Indices[base+2]]
}

// TriangleSoup is the reference Primitive adapter: it flattens any number
// of registered meshes into one global primitive index space and privately
// maps a global index back to (mesh, local triangle), exactly as spec.md
// describes for the builder's mesh collaborator. It is not part of the
// core acceleration structure; it exists so the core can be exercised and
// tested end to end without a real scene-parsing collaborator.
type TriangleSoup struct {
	meshes  []*Mesh
	offsets []uint32 // offsets[i] = first global index of meshes[i]; monotonically increasing
}

// NewTriangleSoup returns an empty adapter.
func NewTriangleSoup() *TriangleSoup {
	return &TriangleSoup{offsets: []uint32{0}}
}

// AddMesh registers a mesh and returns the global index of its first
// triangle. Valid only before the backing tree's Build call.
func (s *TriangleSoup) AddMesh(m *Mesh) uint32 {
	base := s.offsets[len(s.offsets)-1]
	s.meshes = append(s.meshes, m)
	s.offsets = append(s.offsets, base+m.TriangleCount())
	return base
}

func (s *TriangleSoup) locate(global uint32) (mesh *Mesh, local uint32) {
	// Binary search over the monotonically increasing offset array.
	lo, hi := 0, len(s.offsets)-1
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if s.offsets[mid] <= global {
			lo = mid
		} else {
			hi = mid
		}
	}
	return s.meshes[lo], global - s.offsets[lo]
}

// PrimitiveCount implements Primitive.
func (s *TriangleSoup) PrimitiveCount() uint32 {
	if len(s.offsets) == 0 {
		return 0
	}
	return s.offsets[len(s.offsets)-1]
}

// BoundingBox implements Primitive.
func (s *TriangleSoup) BoundingBox(idx uint32) AABB {
	m, local := s.locate(idx)
	v0, v1, v2 := m.triangle(local)
	b := AABB{Min: v0, Max: v0}
	b = b.UnionPoint(v1)
	b = b.UnionPoint(v2)
	return b
}

// ClippedBoundingBox implements Primitive via 6-plane Sutherland-Hodgman
// clipping of the triangle polygon against clip, in double precision.
func (s *TriangleSoup) ClippedBoundingBox(idx uint32, clip AABB) AABB {
	m, local := s.locate(idx)
	v0, v1, v2 := m.triangle(local)
	poly := []Vec3{v0, v1, v2}

	poly = clipPolygonAxis(poly, AxisX, clip.Min.X, false)
	poly = clipPolygonAxis(poly, AxisX, clip.Max.X, true)
	poly = clipPolygonAxis(poly, AxisY, clip.Min.Y, false)
	poly = clipPolygonAxis(poly, AxisY, clip.Max.Y, true)
	poly = clipPolygonAxis(poly, AxisZ, clip.Min.Z, false)
	poly = clipPolygonAxis(poly, AxisZ, clip.Max.Z, true)

	if len(poly) == 0 {
		return EmptyAABB()
	}
	out := AABB{Min: poly[0], Max: poly[0]}
	for _, p := range poly[1:] {
		out = out.UnionPoint(p)
	}
	// Clamp to the clip box: clipping is exact up to float noise, but
	// snapping the result guarantees the caller never observes a box
	// that escapes clip.
	return out.Intersect(clip)
}

// clipPolygonAxis clips a convex polygon against a single axis-aligned
// plane `coord` along axis a. If upper is false the kept half-space is
// coord >= plane (a lower bound), otherwise coord <= plane (an upper
// bound). This is the Sutherland-Hodgman inner loop, applied once per
// plane of the box (six calls total clip against all six planes).
func clipPolygonAxis(poly []Vec3, a Axis, plane float64, upper bool) []Vec3 {
	if len(poly) == 0 {
		return poly
	}
	inside := func(p Vec3) bool {
		c := p.Get(a)
		if upper {
			return c <= plane
		}
		return c >= plane
	}
	out := make([]Vec3, 0, len(poly)+1)
	n := len(poly)
	for i := 0; i < n; i++ {
		curr := poly[i]
		prev := poly[(i-1+n)%n]
		currIn := inside(curr)
		prevIn := inside(prev)
		if currIn {
			if !prevIn {
				out = append(out, intersectEdgeAxis(prev, curr, a, plane))
			}
			out = append(out, curr)
		} else if prevIn {
			out = append(out, intersectEdgeAxis(prev, curr, a, plane))
		}
	}
	return out
}

func intersectEdgeAxis(p0, p1 Vec3, a Axis, plane float64) Vec3 {
	c0, c1 := p0.Get(a), p1.Get(a)
	t := (plane - c0) / (c1 - c0)
	return p0.Add(p1.Sub(p0).Scale(t))
}

// IntersectDetailed implements Primitive using the Moller-Trumbore
// algorithm, writing barycentric (u, v) on success.
func (s *TriangleSoup) IntersectDetailed(idx uint32, r Ray) (Hit, bool) {
	m, local := s.locate(idx)
	v0, v1, v2 := m.triangle(local)

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	pvec := r.Dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if math.Abs(det) < moellerTrumboreEpsilon {
		return Hit{}, false
	}
	invDet := 1.0 / det

	tvec := r.Origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return Hit{}, false
	}

	qvec := tvec.Cross(edge1)
	v := r.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return Hit{}, false
	}

	t := edge2.Dot(qvec) * invDet
	if t < r.TMin || t > r.TMax {
		return Hit{}, false
	}
	return Hit{T: t, U: u, V: v, Prim: idx}, true
}

// IntersectAny implements Primitive's shadow-ray entry point by running the
// full IntersectDetailed test and discarding the hit record.
func (s *TriangleSoup) IntersectAny(idx uint32, r Ray) bool {
	_, ok := s.IntersectDetailed(idx, r)
	return ok
}
