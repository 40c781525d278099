package sweep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/internal/classify"
	"github.com/katalvlaran/kdforge/kdtree/cost"
)

func boxesAlongX(n int) []geom.AABB {
	boxes := make([]geom.AABB, n)
	for i := 0; i < n; i++ {
		x0 := float64(i)
		boxes[i] = geom.AABB{
			Min: geom.Vec3{X: x0, Y: 0, Z: 0},
			Max: geom.Vec3{X: x0 + 0.9, Y: 1, Z: 1},
		}
	}
	return boxes
}

func eventsFor(boxes []geom.AABB) []Event {
	var events []Event
	for i, b := range boxes {
		events = BuildEvents(events, uint32(i), b)
	}
	Sort(events)
	return events
}

func TestFindSplitBalancedMiddle(t *testing.T) {
	boxes := boxesAlongX(10)
	events := eventsFor(boxes)
	box := geom.AABB{Min: geom.Vec3{X: 0, Y: 0, Z: 0}, Max: geom.Vec3{X: 9.9, Y: 1, Z: 1}}

	h := cost.SAH{Ktrav: 15, Kquery: 20, EmptyBonus: 0.9}
	best := FindSplit(events, len(boxes), box, h)

	require.True(t, best.Valid)
	require.Equal(t, uint8(0), best.Axis)
	require.Greater(t, best.NumLeft, 0)
	require.Greater(t, best.NumRight, 0)
}

func TestEventOrderingTieBreak(t *testing.T) {
	events := []Event{
		{Position: 1, Prim: 0, Axis: geom.AxisX, Kind: KindStart},
		{Position: 1, Prim: 1, Axis: geom.AxisX, Kind: KindEnd},
		{Position: 1, Prim: 2, Axis: geom.AxisX, Kind: KindPlanar},
	}
	Sort(events)
	require.Equal(t, KindEnd, events[0].Kind)
	require.Equal(t, KindPlanar, events[1].Kind)
	require.Equal(t, KindStart, events[2].Kind)
}

func TestEvaluateBadRefines(t *testing.T) {
	p := BadRefinesParams{Kquery: 20, MaxBadRefines: 3, LeafCostFactor: 4, SmallLeafPrims: 16}

	// A cheap split (cost well below leaf cost) should never trigger the
	// bad-refines gate.
	cheap := cost.Candidate{Cost: 1, Valid: true}
	d := EvaluateBadRefines(cheap, 100, 0, p)
	require.False(t, d.MakeLeaf)
	require.False(t, d.IncrementBadRefines)

	// An expensive split on a small node should make a leaf.
	expensive := cost.Candidate{Cost: 100000, Valid: true}
	d = EvaluateBadRefines(expensive, 10, 0, p)
	require.True(t, d.MakeLeaf)

	// An expensive split on a large node increments bad refines instead.
	d = EvaluateBadRefines(expensive, 1000, 0, p)
	require.False(t, d.MakeLeaf)
	require.True(t, d.IncrementBadRefines)

	// Once badRefines has reached the max, force a leaf regardless of
	// node size.
	d = EvaluateBadRefines(expensive, 1000, 3, p)
	require.True(t, d.MakeLeaf)
}

type fakePrim struct {
	boxes []geom.AABB
}

func (f *fakePrim) PrimitiveCount() uint32 { return uint32(len(f.boxes)) }
func (f *fakePrim) BoundingBox(idx uint32) geom.AABB { return f.boxes[idx] }
func (f *fakePrim) ClippedBoundingBox(idx uint32, clip geom.AABB) geom.AABB {
	return f.boxes[idx].Intersect(clip)
}
func (f *fakePrim) IntersectDetailed(idx uint32, r geom.Ray) (geom.Hit, bool) { return geom.Hit{}, false }
func (f *fakePrim) IntersectAny(idx uint32, r geom.Ray) bool                  { return false }

func TestPartitionStraddlingPrimitiveGoesToBothSides(t *testing.T) {
	boxes := []geom.AABB{
		{Min: geom.Vec3{X: 0, Y: 0, Z: 0}, Max: geom.Vec3{X: 1, Y: 1, Z: 1}}, // left only
		{Min: geom.Vec3{X: 4, Y: 0, Z: 0}, Max: geom.Vec3{X: 8, Y: 1, Z: 1}}, // straddles x=5
		{Min: geom.Vec3{X: 6, Y: 0, Z: 0}, Max: geom.Vec3{X: 9, Y: 1, Z: 1}}, // right only
	}
	events := eventsFor(boxes)
	store := classify.New(len(boxes))
	prims := &fakePrim{boxes: boxes}

	split := cost.Candidate{Position: 5, Axis: 0, Valid: true}
	leftBox := geom.AABB{Min: geom.Vec3{X: 0, Y: 0, Z: 0}, Max: geom.Vec3{X: 5, Y: 1, Z: 1}}
	rightBox := geom.AABB{Min: geom.Vec3{X: 5, Y: 0, Z: 0}, Max: geom.Vec3{X: 9, Y: 1, Z: 1}}

	res := Partition(events, split, leftBox, rightBox, prims, store)

	require.Equal(t, 2, res.LeftPrimCount)  // prim 0, straddling prim re-clipped
	require.Equal(t, 2, res.RightPrimCount) // prim 2, straddling prim re-clipped
	require.Equal(t, 0, res.Pruned)

	leftIDs := PrimitiveIDs(res.LeftEvents)
	rightIDs := PrimitiveIDs(res.RightEvents)
	require.Contains(t, leftIDs, uint32(0))
	require.Contains(t, leftIDs, uint32(1))
	require.Contains(t, rightIDs, uint32(1))
	require.Contains(t, rightIDs, uint32(2))
}

func TestPartitionPrunesFullyClippedPrimitive(t *testing.T) {
	// A straddling-on-X primitive that lies entirely outside both
	// children's Y range clips to empty on both sides and must be
	// pruned from both, not assigned to either.
	boxes := []geom.AABB{
		{Min: geom.Vec3{X: 4.9, Y: 2, Z: 0}, Max: geom.Vec3{X: 5.1, Y: 3, Z: 1}},
	}
	events := eventsFor(boxes)
	store := classify.New(len(boxes))
	prims := &fakePrim{boxes: boxes}

	split := cost.Candidate{Position: 5, Axis: 0, Valid: true}
	leftBox := geom.AABB{Min: geom.Vec3{X: 0, Y: 0, Z: 0}, Max: geom.Vec3{X: 5, Y: 1, Z: 1}}
	rightBox := geom.AABB{Min: geom.Vec3{X: 5, Y: 0, Z: 0}, Max: geom.Vec3{X: 9, Y: 1, Z: 1}}

	res := Partition(events, split, leftBox, rightBox, prims, store)
	require.Equal(t, 0, res.LeftPrimCount)
	require.Equal(t, 0, res.RightPrimCount)
	require.Equal(t, 2, res.Pruned)
}
