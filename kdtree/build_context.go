package kdtree

import (
	"unsafe"

	"github.com/katalvlaran/kdforge/internal/arena"
	"github.com/katalvlaran/kdforge/internal/classify"
	"github.com/katalvlaran/kdforge/kdtree/binning"
	"github.com/katalvlaran/kdforge/kdtree/node"
)

// buildContext bundles every piece of per-thread, unsynchronized state one
// goroutine (the dispatcher, or a worker while it owns a job) needs while
// recursively building a subtree: its own node and primitive-index
// accumulation, its own arenas for staging child index sets during the
// binning phase, and its own reusable
// classification store and binner. Nothing here is safe for concurrent use;
// the builder's worker-handoff protocol guarantees at most one goroutine
// touches a given buildContext at a time.
type buildContext struct {
	leftArena  *arena.Arena
	rightArena *arena.Arena

	nodes       *arena.BlockedVector[node.Node]
	primIndices *arena.BlockedVector[uint32]

	classifier *classify.Store
	binner     *binning.Binner

	// localIndirection resolves inner-node child offsets that overflow the
	// 28-bit field *within this thread's own node accumulation*, distinct
	// from the builder's global indirection table which compaction builds
	// fresh for the final, single node array. A node deep in a lopsided
	// subtree can end up numerically far from a sibling built much earlier
	// in the same buildContext, so overflow is a real possibility even at
	// this per-thread stage, not just after compaction.
	localIndirection *node.IndirectionTable

	stats counters
}

func newBuildContext(globalPrimCount int, bins int) *buildContext {
	var nodeZero node.Node
	var idxZero uint32
	return &buildContext{
		leftArena:        arena.New(),
		rightArena:       arena.New(),
		nodes:            arena.NewBlockedVector[node.Node](int(unsafe.Sizeof(nodeZero))),
		primIndices:      arena.NewBlockedVector[uint32](int(unsafe.Sizeof(idxZero))),
		classifier:       classify.New(globalPrimCount),
		binner:           binning.New(bins),
		localIndirection: &node.IndirectionTable{},
	}
}
