package kdtree

import (
	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/internal/arena"
	"github.com/katalvlaran/kdforge/kdtree/cost"
	"github.com/katalvlaran/kdforge/kdtree/node"
	"github.com/katalvlaran/kdforge/kdtree/sweep"
)

// badRefinesLeafCostFactor and badRefinesSmallLeaf are the PBRT-derived
// constants spec 4.5 fixes for the bad-refines gate: a split costing more
// than 4x the leaf cost on a node with fewer than 16 primitives gives up on
// splitting immediately rather than spending one of its bad-refines
// allowance.
const (
	badRefinesLeafCostFactor = 4
	badRefinesSmallLeaf      = 16
)

// builder holds everything the recursive construction functions need that
// does not vary per subtree: the geometry adapter, the resolved
// configuration, the cost heuristic, and (if parallel construction is
// enabled) the worker pool. A builder is used for exactly one Build call.
type builder struct {
	prims     geom.Primitive
	cfg       Config
	heuristic cost.SAH
	maxDepth  int
	pool      *workerPool
}

func (b *builder) badRefinesParams() sweep.BadRefinesParams {
	return sweep.BadRefinesParams{
		Kquery:         b.cfg.Kquery,
		MaxBadRefines:  b.cfg.MaxBadRefines,
		LeafCostFactor: badRefinesLeafCostFactor,
		SmallLeafPrims: badRefinesSmallLeaf,
	}
}

// buildTreeMinMax is the approximate construction phase (spec 4.4): it bins
// primitive extents into the shared per-thread Binner, evaluates the
// bad-refines gate on the resulting candidate, and either writes a leaf or
// recurses into two children via buildChild. It only ever runs on the
// dispatcher goroutine -- workers only ever run buildTree on a subtree
// already reduced to event-sweep scope.
func (b *builder) buildTreeMinMax(ctx *buildContext, slot int, box geom.AABB, indices []uint32, depth int, badRefines int) {
	primCount := len(indices)

	if primCount <= b.cfg.StopPrims || depth >= b.maxDepth {
		b.writeLeafFromIndices(ctx, slot, depth, indices)
		return
	}

	boxes := make([]geom.AABB, primCount)
	for i, idx := range indices {
		pb := b.prims.BoundingBox(idx)
		if b.cfg.Clip {
			pb = pb.Intersect(box)
		}
		boxes[i] = pb
	}

	ctx.binner.Reset(box)
	ctx.binner.Bin(boxes)
	best := ctx.binner.MinimizeCost(b.heuristic, primCount, box.SurfaceArea())
	if !best.Valid {
		// No bin boundary resolved to a consistent split position: hand
		// this node to the exact event sweep instead.
		b.transitionToNLogN(ctx, slot, box, indices, depth, badRefines)
		return
	}

	decision := sweep.EvaluateBadRefines(best, primCount, badRefines, b.badRefinesParams())
	if decision.MakeLeaf {
		b.writeLeafFromIndices(ctx, slot, depth, indices)
		return
	}
	nextBadRefines := badRefines
	if decision.IncrementBadRefines {
		nextBadRefines++
	}

	axis := geom.Axis(best.Axis)
	leftBox, rightBox := splitBox(box, axis, best.Position)

	// leftArena/rightArena stage each child's index set for the duration of
	// this node's recursion: an upper-bound reservation of primCount
	// elements, trimmed to the real count once classification finishes.
	// Both are released together once both children have been fully built,
	// honoring the arena's LIFO discipline (any nested reservations a child
	// makes on these same arenas are released before control returns here).
	leftBuf, leftMark := arena.Allocate[uint32](ctx.leftArena, primCount)
	rightBuf, rightMark := arena.Allocate[uint32](ctx.rightArena, primCount)
	nLeft, nRight := 0, 0
	for i, idx := range indices {
		pb := boxes[i]
		switch {
		case pb.Max.Get(axis) <= best.Position:
			leftBuf[nLeft] = idx
			nLeft++
		case pb.Min.Get(axis) >= best.Position:
			rightBuf[nRight] = idx
			nRight++
		default:
			leftBuf[nLeft] = idx
			nLeft++
			rightBuf[nRight] = idx
			nRight++
		}
	}
	leftIdx := arena.Shrink(ctx.leftArena, leftMark, leftBuf, nLeft)
	rightIdx := arena.Shrink(ctx.rightArena, rightMark, rightBuf, nRight)

	// A degenerate bin boundary can fail to separate anything (every
	// primitive straddles); fall back to a leaf rather than recursing
	// forever on an identical child pair.
	if nLeft == primCount && nRight == primCount {
		ctx.leftArena.Release(leftMark)
		ctx.rightArena.Release(rightMark)
		b.writeLeafFromIndices(ctx, slot, depth, indices)
		return
	}

	pair, pairBase := ctx.nodes.AllocateN(2)
	_ = pair
	b.setInner(ctx, slot, pairBase, uint8(axis), float32(best.Position))
	ctx.stats.inner++

	b.buildChild(ctx, pairBase, leftBox, leftIdx, depth+1, nextBadRefines)
	b.buildChild(ctx, pairBase+1, rightBox, rightIdx, depth+1, nextBadRefines)
	ctx.leftArena.Release(leftMark)
	ctx.rightArena.Release(rightMark)
}

// buildChild routes a child of a binning-phase split either back into
// buildTreeMinMax or, once its primitive count has dropped to the exact
// threshold, into transitionToNLogN.
func (b *builder) buildChild(ctx *buildContext, slot int, box geom.AABB, indices []uint32, depth int, badRefines int) {
	if len(indices) <= b.cfg.ExactPrimThreshold || depth >= b.maxDepth {
		b.transitionToNLogN(ctx, slot, box, indices, depth, badRefines)
		return
	}
	b.buildTreeMinMax(ctx, slot, box, indices, depth, badRefines)
}

// transitionToNLogN builds the sorted edge-event list for indices and
// either offloads the resulting subtree to the worker pool or, if parallel
// construction is disabled, builds it inline via buildTree.
func (b *builder) transitionToNLogN(ctx *buildContext, slot int, box geom.AABB, indices []uint32, depth int, badRefines int) {
	var events []sweep.Event
	for _, idx := range indices {
		pb := b.prims.BoundingBox(idx)
		if b.cfg.Clip {
			pb = pb.Intersect(box)
		}
		events = sweep.BuildEvents(events, idx, pb)
	}
	sweep.Sort(events)

	if b.pool != nil {
		b.pool.offload(&job{
			slot:       slot,
			box:        box,
			events:     events,
			primCount:  len(indices),
			depth:      depth,
			badRefines: badRefines,
		})
		return
	}
	b.buildTree(ctx, slot, box, events, len(indices), depth, badRefines)
}

// buildTree is the exact event-sweep construction phase (spec 4.5-4.6). It
// returns the realized SAH cost of the subtree it just wrote at slot, which
// its caller uses to decide whether to retract this very subtree back into
// a leaf.
func (b *builder) buildTree(ctx *buildContext, slot int, box geom.AABB, events []sweep.Event, primCount int, depth int, badRefines int) float64 {
	if primCount <= b.cfg.StopPrims || depth >= b.maxDepth {
		return b.writeLeafFromEvents(ctx, slot, depth, events)
	}

	best := sweep.FindSplit(events, primCount, box, b.heuristic)
	decision := sweep.EvaluateBadRefines(best, primCount, badRefines, b.badRefinesParams())
	if !best.Valid || decision.MakeLeaf {
		return b.writeLeafFromEvents(ctx, slot, depth, events)
	}
	nextBadRefines := badRefines
	if decision.IncrementBadRefines {
		nextBadRefines++
	}

	axis := geom.Axis(best.Axis)
	leftBox, rightBox := splitBox(box, axis, best.Position)
	part := b.partitionEvents(ctx, events, best, leftBox, rightBox)
	ctx.stats.pruned += uint64(part.Pruned)

	if part.LeftPrimCount == primCount || part.RightPrimCount == primCount {
		// No real separation was achieved (can happen at grazing
		// incidence with clipping disabled); give up and leaf out.
		return b.writeLeafFromEvents(ctx, slot, depth, events)
	}

	nodesMark := ctx.nodes.Len()
	primMark := ctx.primIndices.Len()

	pair, pairBase := ctx.nodes.AllocateN(2)
	_ = pair
	b.setInner(ctx, slot, pairBase, uint8(axis), float32(best.Position))

	leftCost := b.buildTree(ctx, pairBase, leftBox, part.LeftEvents, part.LeftPrimCount, depth+1, nextBadRefines)
	rightCost := b.buildTree(ctx, pairBase+1, rightBox, part.RightEvents, part.RightPrimCount, depth+1, nextBadRefines)

	pLeft := b.heuristic.Probability(leftBox.SurfaceArea(), box.SurfaceArea())
	pRight := b.heuristic.Probability(rightBox.SurfaceArea(), box.SurfaceArea())
	finalCost := b.heuristic.TraversalCost() + pLeft*leftCost + pRight*rightCost

	if b.cfg.Retract && finalCost >= float64(primCount)*b.heuristic.IntersectionCost() {
		ctx.nodes.Truncate(nodesMark)
		ctx.primIndices.Truncate(primMark)
		ids := sweep.PrimitiveIDs(events)
		start := uint32(ctx.primIndices.Len())
		for _, id := range ids {
			ctx.primIndices.Push(id)
		}
		end := uint32(ctx.primIndices.Len())
		ctx.nodes.Set(slot, node.MakeLeaf(start, end))
		ctx.stats.retracted++
		ctx.stats.recordLeaf(depth, len(ids))
		return b.heuristic.IntersectionCost() * float64(len(ids))
	}

	ctx.stats.inner++
	return finalCost
}

// partitionEvents routes to the perfect-split partitioner when clipping is
// enabled, or to a plain classify-only split (straddling primitives
// duplicated to both children, no re-clip, no pruning) when it is not.
func (b *builder) partitionEvents(ctx *buildContext, events []sweep.Event, split cost.Candidate, leftBox, rightBox geom.AABB) sweep.PartitionResult {
	if b.cfg.Clip {
		return sweep.Partition(events, split, leftBox, rightBox, b.prims, ctx.classifier)
	}

	axis := geom.Axis(split.Axis)
	ids := sweep.PrimitiveIDs(events)
	var leftIDs, rightIDs []uint32
	for _, id := range ids {
		box := b.prims.BoundingBox(id)
		switch {
		case box.Max.Get(axis) <= split.Position:
			leftIDs = append(leftIDs, id)
		case box.Min.Get(axis) >= split.Position:
			rightIDs = append(rightIDs, id)
		default:
			leftIDs = append(leftIDs, id)
			rightIDs = append(rightIDs, id)
		}
	}
	var leftEvents, rightEvents []sweep.Event
	for _, id := range leftIDs {
		leftEvents = sweep.BuildEvents(leftEvents, id, b.prims.BoundingBox(id))
	}
	for _, id := range rightIDs {
		rightEvents = sweep.BuildEvents(rightEvents, id, b.prims.BoundingBox(id))
	}
	sweep.Sort(leftEvents)
	sweep.Sort(rightEvents)
	return sweep.PartitionResult{
		LeftEvents: leftEvents, RightEvents: rightEvents,
		LeftPrimCount: len(leftIDs), RightPrimCount: len(rightIDs),
	}
}

func (b *builder) writeLeafFromIndices(ctx *buildContext, slot int, depth int, indices []uint32) float64 {
	start := uint32(ctx.primIndices.Len())
	for _, idx := range indices {
		ctx.primIndices.Push(idx)
	}
	end := uint32(ctx.primIndices.Len())
	ctx.nodes.Set(slot, node.MakeLeaf(start, end))
	ctx.stats.recordLeaf(depth, len(indices))
	return b.heuristic.IntersectionCost() * float64(len(indices))
}

func (b *builder) writeLeafFromEvents(ctx *buildContext, slot int, depth int, events []sweep.Event) float64 {
	ids := sweep.PrimitiveIDs(events)
	start := uint32(ctx.primIndices.Len())
	for _, id := range ids {
		ctx.primIndices.Push(id)
	}
	end := uint32(ctx.primIndices.Len())
	ctx.nodes.Set(slot, node.MakeLeaf(start, end))
	ctx.stats.recordLeaf(depth, len(ids))
	return b.heuristic.IntersectionCost() * float64(len(ids))
}

// setInner encodes an inner node at slot whose children occupy the
// (pairBase, pairBase+1) pair just reserved in ctx's own node vector,
// using ctx's local indirection table if the relative offset overflows the
// 28-bit field.
func (b *builder) setInner(ctx *buildContext, slot, pairBase int, axis uint8, split float32) {
	rel := pairBase - slot
	if rel >= 0 && rel <= node.MaxRelOffset {
		ctx.nodes.Set(slot, node.MakeInner(uint32(rel), axis, split))
		return
	}
	idx := ctx.localIndirection.Append(uint32(pairBase))
	ctx.nodes.Set(slot, node.MakeInnerIndirect(idx, axis, split))
}

// splitBox returns the left and right children of box split at position
// along axis.
func splitBox(box geom.AABB, axis geom.Axis, position float64) (left, right geom.AABB) {
	left, right = box, box
	switch axis {
	case geom.AxisX:
		left.Max.X, right.Min.X = position, position
	case geom.AxisY:
		left.Max.Y, right.Min.Y = position, position
	case geom.AxisZ:
		left.Max.Z, right.Min.Z = position, position
	}
	return left, right
}
