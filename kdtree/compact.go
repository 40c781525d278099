package kdtree

import "github.com/katalvlaran/kdforge/kdtree/node"

// compactor walks the prelim tree -- the dispatcher's buildContext, spliced
// with every worker's buildContext at the points the dispatcher recorded in
// workerPool.offloads -- and re-emits it as a single contiguous node array
// with freshly computed sibling-pair-adjacent relative offsets, a fresh
// global indirection table for any offset that still overflows, and a
// single flat primitive-index array.
type compactor struct {
	pool *workerPool

	finalNodes  []node.Node
	finalPrim   []uint32
	globalIndir node.IndirectionTable
}

type ctxRef struct {
	ctx          *buildContext
	isDispatcher bool
}

// resolveStart redirects a dispatcher-local slot that was actually handed
// off to a worker onto that worker's own context and local root index.
// Worker contexts are never themselves offload sources (only the
// dispatcher ever calls workerPool.offload), so this redirection happens
// at most once per path from the root.
func (c *compactor) resolveStart(ref ctxRef, localIdx int) (ctxRef, int) {
	if ref.isDispatcher && c.pool != nil {
		if j, ok := c.pool.offloads[localIdx]; ok {
			return ctxRef{ctx: c.pool.ctxs[j.resultWorker]}, j.resultSlot
		}
	}
	return ref, localIdx
}

func (c *compactor) compactInto(finalSlot int, ref ctxRef, localIdx int) {
	ref, localIdx = c.resolveStart(ref, localIdx)
	n := ref.ctx.nodes.At(localIdx)

	if n.IsLeaf() {
		start, end := n.LeafStart(), n.LeafEnd()
		newStart := uint32(len(c.finalPrim))
		for i := start; i < end; i++ {
			c.finalPrim = append(c.finalPrim, ref.ctx.primIndices.At(int(i)))
		}
		newEnd := uint32(len(c.finalPrim))
		c.finalNodes[finalSlot] = node.MakeLeaf(newStart, newEnd)
		return
	}

	var leftLocal int
	if n.IsIndirect() {
		leftLocal = int(ref.ctx.localIndirection.At(n.Offset()))
	} else {
		leftLocal = localIdx + int(n.Offset())
	}
	rightLocal := leftLocal + 1

	pairBase := len(c.finalNodes)
	c.finalNodes = append(c.finalNodes, node.Node{}, node.Node{})
	rel := pairBase - finalSlot
	if rel >= 0 && rel <= node.MaxRelOffset {
		c.finalNodes[finalSlot] = node.MakeInner(uint32(rel), n.Axis(), n.Split())
	} else {
		idx := c.globalIndir.Append(uint32(pairBase))
		c.finalNodes[finalSlot] = node.MakeInnerIndirect(idx, n.Axis(), n.Split())
	}

	c.compactInto(pairBase, ref, leftLocal)
	c.compactInto(pairBase+1, ref, rightLocal)
}

// compact runs the full compaction pass starting from the dispatcher's
// root (always local index 0 in its own context) and returns the final
// node array (index 0 is the alignment slot, the root is at index 1), the
// flat primitive-index array, and the global indirection table's entries.
func (b *builder) compact(dispatcherCtx *buildContext, pool *workerPool) ([]node.Node, []uint32, []uint32) {
	c := &compactor{pool: pool}
	c.finalNodes = make([]node.Node, 2) // [0]=alignment, [1]=root (written below)
	c.compactInto(1, ctxRef{ctx: dispatcherCtx, isDispatcher: true}, 0)
	return c.finalNodes, c.finalPrim, c.globalIndir.Entries()
}
