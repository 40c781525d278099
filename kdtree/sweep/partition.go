package sweep

import (
	"sort"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/internal/classify"
	"github.com/katalvlaran/kdforge/kdtree/cost"
)

// PartitionResult is the outcome of partitioning one node's event list
// across a chosen split plane.
type PartitionResult struct {
	LeftEvents     []Event
	RightEvents    []Event
	LeftPrimCount  int
	RightPrimCount int
	Pruned         int
}

// axisBounds returns the [lo, hi) index range of events belonging to
// axis, exploiting that events is sorted primarily by Axis.
func axisBounds(events []Event, axis geom.Axis) (int, int) {
	lo := sort.Search(len(events), func(i int) bool { return events[i].Axis >= axis })
	hi := sort.Search(len(events), func(i int) bool { return events[i].Axis > axis })
	return lo, hi
}

type extent struct {
	hasStart, hasEnd, isPlanar bool
	startPos, endPos, planePos float64
}

// classifyPrimitives walks the split axis's events once, determining for
// each referenced primitive whether it lies fully left of the split, fully
// right, is coplanar with the split plane, or straddles it (BOTH,
// requiring perfect-split re-clipping). Results are written into store
// keyed by global primitive id.
func classifyPrimitives(events []Event, split cost.Candidate, store *classify.Store) {
	axis := geom.Axis(split.Axis)
	lo, hi := axisBounds(events, axis)

	extents := make(map[uint32]*extent)
	for i := lo; i < hi; i++ {
		e := events[i]
		ext, ok := extents[e.Prim]
		if !ok {
			ext = &extent{}
			extents[e.Prim] = ext
		}
		switch e.Kind {
		case KindStart:
			ext.hasStart = true
			ext.startPos = e.Position
		case KindEnd:
			ext.hasEnd = true
			ext.endPos = e.Position
		case KindPlanar:
			ext.isPlanar = true
			ext.planePos = e.Position
		}
	}

	for prim, ext := range extents {
		switch {
		case ext.isPlanar:
			if ext.planePos == split.Position {
				if split.PlanarLeft {
					store.Set(prim, classify.Left)
				} else {
					store.Set(prim, classify.Right)
				}
			} else if ext.planePos < split.Position {
				store.Set(prim, classify.Left)
			} else {
				store.Set(prim, classify.Right)
			}
		case ext.endPos <= split.Position:
			store.Set(prim, classify.Left)
		case ext.startPos >= split.Position:
			store.Set(prim, classify.Right)
		default:
			store.Set(prim, classify.Both)
		}
	}
}

// Partition splits events (the node's full, sorted event list across all
// three axes) into left and right child event lists according to split,
// re-clipping every straddling primitive against leftBox and rightBox
// (the perfect-split step). Every straddling primitive's re-clip happens
// exactly once regardless of how many of its events are scanned, by
// transitioning its classification to Processed on first encounter.
//
// prims is consulted only for straddling primitives; non-straddling
// primitives' events are carried over unmodified, since their bounding
// box does not change on any axis other than the split axis, and on the
// split axis they already lie entirely within the child they were
// assigned to.
func Partition(events []Event, split cost.Candidate, leftBox, rightBox geom.AABB, prims geom.Primitive, store *classify.Store) PartitionResult {
	classifyPrimitives(events, split, store)

	leftTemp := make([]Event, 0, len(events)/2)
	rightTemp := make([]Event, 0, len(events)/2)
	var newLeft, newRight []Event
	pruned := 0

	for _, e := range events {
		switch store.Get(e.Prim) {
		case classify.Left:
			leftTemp = append(leftTemp, e)
		case classify.Right:
			rightTemp = append(rightTemp, e)
		case classify.Both:
			lBox := prims.ClippedBoundingBox(e.Prim, leftBox)
			rBox := prims.ClippedBoundingBox(e.Prim, rightBox)
			if !lBox.Empty() {
				newLeft = BuildEvents(newLeft, e.Prim, lBox)
			} else {
				pruned++
			}
			if !rBox.Empty() {
				newRight = BuildEvents(newRight, e.Prim, rBox)
			} else {
				pruned++
			}
			store.Set(e.Prim, classify.Processed)
		case classify.Processed:
			// Fresh events for this straddling primitive were already
			// emitted when its first event was encountered above.
		}
	}

	Sort(newLeft)
	Sort(newRight)
	leftEvents := MergeSorted(leftTemp, newLeft)
	rightEvents := MergeSorted(rightTemp, newRight)

	return PartitionResult{
		LeftEvents:     leftEvents,
		RightEvents:    rightEvents,
		LeftPrimCount:  CountPrimitives(leftEvents),
		RightPrimCount: CountPrimitives(rightEvents),
		Pruned:         pruned,
	}
}

// CountPrimitives returns the number of distinct primitives described by a
// sorted event list, by counting Start and Planar events on the X axis --
// every primitive contributes exactly one such event on every axis it has
// events for.
func CountPrimitives(events []Event) int {
	lo, hi := axisBounds(events, geom.AxisX)
	n := 0
	for i := lo; i < hi; i++ {
		if events[i].Kind == KindStart || events[i].Kind == KindPlanar {
			n++
		}
	}
	return n
}

// PrimitiveIDs returns the sorted, de-duplicated set of primitive indices
// described by events, used when collapsing a retracted subtree's
// primitive set into a single leaf.
func PrimitiveIDs(events []Event) []uint32 {
	seen := make(map[uint32]struct{})
	for _, e := range events {
		seen[e.Prim] = struct{}{}
	}
	out := make([]uint32, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
