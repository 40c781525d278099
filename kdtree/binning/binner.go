// Package binning implements the approximate min-max-binned SAH split
// search used near the root of the tree, before the primitive count drops
// low enough for the exact O(n log n) event sweep to be affordable.
package binning

import (
	"math"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree/cost"
)

// DefaultBinCount is the number of bins per axis used when the builder
// does not override it.
const DefaultBinCount = 128

// maxBisectionIterations bounds the bounded bisection search MinimizeCost
// performs when a candidate split position fails to reclassify primitives
// consistently with the bins that produced it.
const maxBisectionIterations = 50

// Binner computes an approximate SAH-minimizing split plane for a set of
// primitives by binning their min/max extents per axis into B buckets,
// then sweeping bucket boundaries. It is reused across sibling nodes at
// the same recursion depth by calling Reset before each Bin call.
type Binner struct {
	bins     int
	minBin   [3][]int32
	maxBin   [3][]int32
	binWidth [3]float64
	box      geom.AABB
}

// New returns a Binner with the given bin count per axis.
func New(bins int) *Binner {
	b := &Binner{bins: bins}
	for a := 0; a < 3; a++ {
		b.minBin[a] = make([]int32, bins)
		b.maxBin[a] = make([]int32, bins)
	}
	return b
}

// Reset clears the bin counts and records the parent bounding box the next
// Bin call will classify primitives against.
func (b *Binner) Reset(box geom.AABB) {
	b.box = box
	d := box.Extent()
	for a := 0; a < 3; a++ {
		for i := range b.minBin[a] {
			b.minBin[a][i] = 0
			b.maxBin[a][i] = 0
		}
		width := d.Get(geom.Axis(a)) / float64(b.bins)
		if width <= 0 || math.IsNaN(width) {
			width = 1 // degenerate axis; every primitive lands in bin 0
		}
		b.binWidth[a] = width
	}
}

func (b *Binner) binIndex(axis int, coord float64) int {
	lo := b.box.Min.Get(geom.Axis(axis))
	idx := int(math.Floor((coord - lo) / b.binWidth[axis]))
	if idx < 0 {
		idx = 0
	}
	if idx >= b.bins {
		idx = b.bins - 1
	}
	return idx
}

// Bin walks boxes (one bounding box per primitive in the node), binning
// each primitive's min and max extents per axis.
func (b *Binner) Bin(boxes []geom.AABB) {
	for _, box := range boxes {
		for a := 0; a < 3; a++ {
			axis := geom.Axis(a)
			minIdx := b.binIndex(a, box.Min.Get(axis))
			maxIdx := b.binIndex(a, box.Max.Get(axis))
			b.minBin[a][minIdx]++
			b.maxBin[a][maxIdx]++
		}
	}
}

// MinimizeCost sweeps the bin boundaries of every axis, using h to score
// each candidate split, and returns the best candidate found. primCount is
// the number of primitives that were binned (len(boxes) passed to Bin).
// parentArea is the surface area of the parent box, used to normalize
// child probabilities.
//
// If the chosen boundary's float split position cannot be shown to
// reclassify primitives identically to the bin counts that produced it, a
// bounded bisection search (at most maxBisectionIterations steps) looks
// for a consistent boundary; if that also fails, the candidate's cost is
// set to +Inf so the caller falls back to the exact event sweeper.
func (b *Binner) MinimizeCost(h cost.Heuristic, primCount int, parentArea float64) cost.Candidate {
	best := cost.NoSplit()
	d := b.box.Extent()

	for a := 0; a < 3; a++ {
		axis := geom.Axis(a)
		otherA, otherB := otherAxes(a)
		s0 := 2.0 * (d.Get(otherA) * d.Get(otherB))
		perimeter := 2.0 * (d.Get(otherA) + d.Get(otherB))

		numLeft := int32(0)
		numRight := int32(primCount)
		lo := b.box.Min.Get(axis)

		for bin := 0; bin < b.bins-1; bin++ {
			numLeft += b.minBin[a][bin]
			numRight -= b.maxBin[a][bin]

			splitPos := lo + float64(bin+1)*b.binWidth[a]
			t := splitPos - lo
			if t < 0 {
				t = 0
			}
			leftArea := s0 + perimeter*t
			rightArea := s0 + perimeter*(d.Get(axis)-t)

			pLeft := h.Probability(leftArea, parentArea)
			pRight := h.Probability(rightArea, parentArea)

			// No empty-space bonus in the binning stage (spec 4.4): the
			// approximate binned cost is used only to pick a candidate
			// axis/position quickly, not to make the final leaf/split
			// decision, which happens in the sweeper.
			c := h.TraversalCost() + h.IntersectionCost()*(pLeft*float64(numLeft)+pRight*float64(numRight))
			if c < best.Cost {
				resolved, ok := b.resolveConsistentSplit(a, bin, splitPos)
				if !ok {
					continue
				}
				best = cost.Candidate{
					Cost:     c,
					Position: resolved,
					Axis:     uint8(a),
					NumLeft:  int(numLeft),
					NumRight: int(numRight),
					Valid:    true,
				}
			}
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

// resolveConsistentSplit verifies that the candidate split position for
// bin boundary `bin` on axis `a` reclassifies to the same bin boundary
// when run back through binIndex (the same reciprocal used during
// binning can otherwise round a bin boundary onto the wrong side of
// itself). On mismatch it bisects between the boundary and its IEEE
// successor for up to maxBisectionIterations steps.
func (b *Binner) resolveConsistentSplit(a, bin int, splitPos float64) (float64, bool) {
	checkIdx := func(pos float64) int {
		return b.binIndex(a, pos)
	}
	// A position classifying into exactly bin or bin+1 is consistent:
	// primitives with max <= splitPos land at or before bin, primitives
	// with min >= splitPos land at or after bin+1.
	idx := checkIdx(splitPos)
	if idx == bin || idx == bin+1 {
		return splitPos, true
	}

	lo := splitPos
	hi := math.Nextafter(splitPos, math.Inf(1))
	for i := 0; i < maxBisectionIterations; i++ {
		mid := lo + (hi-lo)/2
		if mid == lo || mid == hi {
			break
		}
		idx = checkIdx(mid)
		if idx == bin || idx == bin+1 {
			return mid, true
		}
		if idx < bin {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0, false
}
