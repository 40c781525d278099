package kdtree

import "math"

// BuildStats summarizes a completed Build call: node/leaf counts, the
// primitive-index array footprint, the retraction/pruning counters, and a
// rough shape profile useful for regression-testing the cost-bound
// property (spec 8, testable property 7) without re-deriving the full tree.
type BuildStats struct {
	InnerNodes     uint64
	LeafNodes      uint64
	NonEmptyLeaves uint64
	PrimIndexCount uint64
	Retracted      uint64
	Pruned         uint64
	TotalNodes     uint64

	AverageLeafDepth float64
	DepthStdDev      float64
	EstimatedSAHCost float64
}

// counters accumulates the seven per-build counters spec 3 assigns to the
// build context, plus a running sum/sum-of-squares of leaf depth used to
// derive AverageLeafDepth and DepthStdDev once the build finishes.
type counters struct {
	inner, leaf, nonEmptyLeaf uint64
	primIndex                 uint64
	retracted, pruned         uint64

	depthSum   float64
	depthSqSum float64
	leafCount  uint64
}

func (c *counters) recordLeaf(depth int, primCount int) {
	c.leaf++
	if primCount > 0 {
		c.nonEmptyLeaf++
	}
	c.primIndex += uint64(primCount)
	d := float64(depth)
	c.depthSum += d
	c.depthSqSum += d * d
	c.leafCount++
}

func (c *counters) merge(o counters) {
	c.inner += o.inner
	c.leaf += o.leaf
	c.nonEmptyLeaf += o.nonEmptyLeaf
	c.primIndex += o.primIndex
	c.retracted += o.retracted
	c.pruned += o.pruned
	c.depthSum += o.depthSum
	c.depthSqSum += o.depthSqSum
	c.leafCount += o.leafCount
}

func (c counters) toStats(sahCost float64) BuildStats {
	s := BuildStats{
		InnerNodes:     c.inner,
		LeafNodes:      c.leaf,
		NonEmptyLeaves: c.nonEmptyLeaf,
		PrimIndexCount: c.primIndex,
		Retracted:      c.retracted,
		Pruned:         c.pruned,
		TotalNodes:     c.inner + c.leaf,

		EstimatedSAHCost: sahCost,
	}
	if c.leafCount > 0 {
		mean := c.depthSum / float64(c.leafCount)
		variance := c.depthSqSum/float64(c.leafCount) - mean*mean
		if variance < 0 {
			variance = 0
		}
		s.AverageLeafDepth = mean
		s.DepthStdDev = math.Sqrt(variance)
	}
	return s
}
