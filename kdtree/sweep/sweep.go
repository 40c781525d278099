package sweep

import (
	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree/cost"
)

// FindSplit sweeps a sorted event list (sorted under Less, spanning all
// three axes) once per axis and returns the cheapest split candidate
// according to h. box is the node's bounding box; primCount is the number
// of primitives the events describe.
//
// At each distinct (axis, position) the sweep considers two kinds of
// candidate: a non-planar candidate that excludes any primitives coplanar
// with the position from both sides, and a planar-tied candidate that
// assigns the coplanar group to whichever side is cheaper. The cheaper of
// the two is this position's contribution to the axis-wide minimum.
func FindSplit(events []Event, primCount int, box geom.AABB, h cost.Heuristic) cost.Candidate {
	best := cost.NoSplit()
	d := box.Extent()
	parentArea := box.SurfaceArea()

	i := 0
	for i < len(events) {
		axis := events[i].Axis
		numLeft := 0
		numRight := primCount

		otherA, otherB := otherAxes(int(axis))
		s0 := 2.0 * (d.Get(otherA) * d.Get(otherB))
		perimeter := 2.0 * (d.Get(otherA) + d.Get(otherB))
		lo := box.Min.Get(axis)
		extent := d.Get(axis)

		areaAt := func(t float64) (left, right float64) {
			if t < 0 {
				t = 0
			}
			if t > extent {
				t = extent
			}
			return s0 + perimeter*t, s0 + perimeter*(extent-t)
		}

		costOf := func(l, r int, leftArea, rightArea float64) float64 {
			pL := h.Probability(leftArea, parentArea)
			pR := h.Probability(rightArea, parentArea)
			c := h.TraversalCost() + h.IntersectionCost()*(pL*float64(l)+pR*float64(r))
			if l == 0 || r == 0 {
				c *= h.EmptySpaceBonus()
			}
			return c
		}

		for i < len(events) && events[i].Axis == axis {
			pos := events[i].Position
			var endCount, planarCount, startCount int
			for i < len(events) && events[i].Axis == axis && events[i].Position == pos {
				switch events[i].Kind {
				case KindEnd:
					endCount++
				case KindPlanar:
					planarCount++
				case KindStart:
					startCount++
				}
				i++
			}

			leftArea, rightArea := areaAt(pos - lo)

			// Non-planar candidate: the coplanar group belongs to
			// neither side.
			lnp := numLeft
			rnp := numRight - planarCount - endCount
			costNP := costOf(lnp, rnp, leftArea, rightArea)

			// Planar-tied candidates: assign the coplanar group to
			// whichever side is cheaper.
			lpl, rpl := numLeft+planarCount, numRight-planarCount-endCount
			costPL := costOf(lpl, rpl, leftArea, rightArea)
			lpr, rpr := numLeft, numRight-endCount
			costPR := costOf(lpr, rpr, leftArea, rightArea)

			var tiedCost float64
			var tiedL, tiedR int
			var planarLeft bool
			if costPL <= costPR {
				tiedCost, tiedL, tiedR, planarLeft = costPL, lpl, rpl, true
			} else {
				tiedCost, tiedL, tiedR, planarLeft = costPR, lpr, rpr, false
			}

			candCost, candL, candR, candPlanarLeft := costNP, lnp, rnp, false
			if tiedCost < candCost {
				candCost, candL, candR, candPlanarLeft = tiedCost, tiedL, tiedR, planarLeft
			}

			if candCost < best.Cost {
				best = cost.Candidate{
					Cost:       candCost,
					Position:   pos,
					Axis:       uint8(axis),
					NumLeft:    candL,
					NumRight:   candR,
					PlanarLeft: candPlanarLeft,
					Valid:      true,
				}
			}

			numRight -= planarCount + endCount
			numLeft += startCount + planarCount
		}
	}
	return best
}

func otherAxes(a int) (geom.Axis, geom.Axis) {
	switch a {
	case 0:
		return geom.AxisY, geom.AxisZ
	case 1:
		return geom.AxisX, geom.AxisZ
	default:
		return geom.AxisX, geom.AxisY
	}
}

// BadRefinesParams bundles the constants the bad-refines gate needs,
// mirroring the builder's configuration.
type BadRefinesParams struct {
	Kquery         float64
	MaxBadRefines  int
	LeafCostFactor float64 // spec default: 4
	SmallLeafPrims int     // spec default: 16
}

// LeafDecision is the outcome of evaluating the bad-refines rule.
type LeafDecision struct {
	MakeLeaf            bool
	IncrementBadRefines bool
}

// EvaluateBadRefines applies the PBRT-derived bad-refines heuristic (spec
// 4.5): if the best split's cost is no better than just making this node
// a leaf, either give up and make a leaf, or tolerate one more "bad"
// refinement and split anyway, up to MaxBadRefines bad splits on the path
// from the root (badRefines is the count so far on that path).
func EvaluateBadRefines(best cost.Candidate, primCount int, badRefines int, p BadRefinesParams) LeafDecision {
	leafCost := p.Kquery * float64(primCount)
	if best.Cost < float64(primCount)*p.Kquery {
		return LeafDecision{}
	}
	if (best.Cost > p.LeafCostFactor*leafCost && primCount < p.SmallLeafPrims) || badRefines >= p.MaxBadRefines {
		return LeafDecision{MakeLeaf: true}
	}
	return LeafDecision{IncrementBadRefines: true}
}
