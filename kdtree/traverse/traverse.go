// Package traverse implements ray/kd-tree intersection: a stack-based
// descent in the spirit of Havran's TA^B_rec algorithm, ordering the two
// children of each inner node by which one the ray enters first and
// deferring the farther child onto an explicit stack only when the ray
// actually straddles the split plane.
//
// A ray whose origin lies exactly on the split plane is routed to the side
// the ray is moving into along the split axis: the right child when that
// direction component is positive, the left child when it is negative, and
// the left child when the ray has no motion along that axis.
package traverse

import (
	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree/node"
)

// Tree is the read-only, immutable snapshot of a built kd-tree the
// traverser descends. It holds no synchronization because nothing ever
// mutates it after Build hands it out.
type Tree struct {
	Nodes       []node.Node
	Indirection []uint32
	PrimIndices []uint32
	Box         geom.AABB
}

// BatchResult is one element of kdtree.Tree.IntersectBatch's result slice.
type BatchResult struct {
	Hit geom.Hit
	Ok  bool
}

// maxStackDepth is the fixed traversal stack size spec 5 specifies: 48
// entries, matching the builder's own hard depth cap so a correctly built
// tree can never overflow it.
const maxStackDepth = 48

type stackEntry struct {
	node       int
	tMin, tMax float64
}

func childLeft(t Tree, idx int) int {
	n := t.Nodes[idx]
	if n.IsIndirect() {
		return int(t.Indirection[n.Offset()])
	}
	return idx + int(n.Offset())
}

// IntersectClosest finds the closest intersection of r against t's
// primitives, consulting prims for the actual per-primitive test.
func IntersectClosest(t Tree, prims geom.Primitive, r geom.Ray) (geom.Hit, bool) {
	return descend(t, prims, r, false)
}

// IntersectAny reports whether any primitive blocks r anywhere in
// [r.TMin, r.TMax], without computing the closest hit. This is the shadow-
// ray fast path: it returns as soon as the first blocking intersection is
// found, regardless of how far along the ray it lies.
func IntersectAny(t Tree, prims geom.Primitive, r geom.Ray) bool {
	_, ok := descend(t, prims, r, true)
	return ok
}

func descend(t Tree, prims geom.Primitive, r geom.Ray, shadow bool) (geom.Hit, bool) {
	if len(t.Nodes) < 2 {
		return geom.Hit{}, false
	}
	tmin, tmax, ok := t.Box.IntersectRay(r, r.TMin, r.TMax)
	if !ok {
		return geom.Hit{}, false
	}

	var stack [maxStackDepth]stackEntry
	sp := 0

	var best geom.Hit
	found := false

	curNode := 1 // index 0 is the alignment slot; the root always lives at index 1.
	curTMin, curTMax := tmin, tmax

	for {
		n := t.Nodes[curNode]
		for !n.IsLeaf() {
			axis := geom.Axis(n.Axis())
			splitPos := float64(n.Split())
			origin := r.Origin.Get(axis)
			dir := r.Dir.Get(axis)
			rcp := r.DRcp.Get(axis)

			left := childLeft(t, curNode)
			right := left + 1

			var near, far int
			if origin < splitPos || (origin == splitPos && dir <= 0) {
				near, far = left, right
			} else {
				near, far = right, left
			}

			tSplit := (splitPos - origin) * rcp

			switch {
			case !(tSplit < curTMax) || tSplit <= 0:
				// tSplit >= tmax, tSplit <= 0 (the plane is at or behind
				// the origin), or NaN (ray parallel to this axis): the
				// whole [tmin,tmax] segment lies in the near child.
				curNode = near
			case tSplit < curTMin:
				// The split already lies behind tmin: the whole segment
				// lies in the far child.
				curNode = far
			default:
				if sp < maxStackDepth {
					stack[sp] = stackEntry{node: far, tMin: tSplit, tMax: curTMax}
					sp++
				}
				curNode = near
				curTMax = tSplit
			}
			n = t.Nodes[curNode]
		}

		start, end := n.LeafStart(), n.LeafEnd()
		for i := start; i < end; i++ {
			primID := t.PrimIndices[i]
			if shadow {
				probe := r.WithInterval(r.TMin, curTMax)
				if prims.IntersectAny(primID, probe) {
					return geom.Hit{}, true
				}
				continue
			}
			hit, ok := prims.IntersectDetailed(primID, r)
			if !ok {
				continue
			}
			if hit.T < curTMin-1e-9 || hit.T > curTMax+1e-9 {
				continue
			}
			if !found || hit.T < best.T {
				best = hit
				found = true
			}
		}

		popped := false
		for sp > 0 {
			sp--
			e := stack[sp]
			if found && e.tMin > best.T {
				continue // farther leaves cannot beat the current best
			}
			curNode, curTMin, curTMax = e.node, e.tMin, e.tMax
			popped = true
			break
		}
		if !popped {
			break
		}
	}

	return best, found
}
