package traverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree/node"
)

// countingPrims wraps a TriangleSoup and records which primitive indices the
// traverser actually probed, so tests can assert a far child was pruned
// rather than merely assert on the returned hit.
type countingPrims struct {
	*geom.TriangleSoup
	detailedCalls map[uint32]int
	anyCalls      map[uint32]int
}

func newCountingPrims(soup *geom.TriangleSoup) *countingPrims {
	return &countingPrims{TriangleSoup: soup, detailedCalls: map[uint32]int{}, anyCalls: map[uint32]int{}}
}

func (c *countingPrims) IntersectDetailed(idx uint32, r geom.Ray) (geom.Hit, bool) {
	c.detailedCalls[idx]++
	return c.TriangleSoup.IntersectDetailed(idx, r)
}

func (c *countingPrims) IntersectAny(idx uint32, r geom.Ray) bool {
	c.anyCalls[idx]++
	return c.TriangleSoup.IntersectAny(idx, r)
}

// flatQuad returns a mesh with a single large triangle centered at (0,0,z),
// big enough that any ray near the Z axis hits it head-on.
func flatQuad(z float64) *geom.Mesh {
	return &geom.Mesh{
		Vertices: []geom.Vec3{
			{X: -100, Y: -100, Z: z},
			{X: 100, Y: -100, Z: z},
			{X: 0, Y: 100, Z: z},
		},
		Indices: []uint32{0, 1, 2},
	}
}

// twoLeafTree builds a hand-packed tree with a single inner node splitting
// on Z at splitZ, left leaf holding primitive 0, right leaf holding
// primitive 1. No Build call is involved; this exercises descend directly.
func twoLeafTree(splitZ float32) Tree {
	nodes := []node.Node{
		{}, // index 0: alignment
		node.MakeInner(1, uint8(geom.AxisZ), splitZ), // index 1: root, left at 2
		node.MakeLeaf(0, 1),                          // index 2: leaf for primitive 0
		node.MakeLeaf(1, 2),                          // index 3: leaf for primitive 1
	}
	return Tree{
		Nodes:       nodes,
		PrimIndices: []uint32{0, 1},
		Box:         geom.AABB{Min: geom.Vec3{X: -100, Y: -100, Z: -100}, Max: geom.Vec3{X: 100, Y: 100, Z: 100}},
	}
}

func TestDescendFindsClosestAcrossSplitPlane(t *testing.T) {
	soup := geom.NewTriangleSoup()
	soup.AddMesh(flatQuad(0))
	soup.AddMesh(flatQuad(5))
	prims := newCountingPrims(soup)
	tr := twoLeafTree(2.5)

	r := geom.NewRay(geom.Vec3{X: 0, Y: 0, Z: -10}, geom.Vec3{X: 0, Y: 0, Z: 1})
	hit, ok := IntersectClosest(tr, prims, r)
	require.True(t, ok)
	assert.InDelta(t, 10, hit.T, 1e-6)
	assert.Equal(t, uint32(0), hit.Prim)
}

func TestDescendPrunesFarChildWhenNearAlreadyWins(t *testing.T) {
	soup := geom.NewTriangleSoup()
	soup.AddMesh(flatQuad(0))
	soup.AddMesh(flatQuad(5))
	prims := newCountingPrims(soup)
	tr := twoLeafTree(2.5)

	r := geom.NewRay(geom.Vec3{X: 0, Y: 0, Z: -10}, geom.Vec3{X: 0, Y: 0, Z: 1})
	_, ok := IntersectClosest(tr, prims, r)
	require.True(t, ok)

	// The far leaf's split-entry tMin (12.5) exceeds the near leaf's hit
	// t (10), so the stack-pop loop must prune it without ever probing
	// primitive 1.
	assert.Equal(t, 1, prims.detailedCalls[0])
	assert.Equal(t, 0, prims.detailedCalls[1])
}

func TestDescendOrdersNearFirstFromEitherSide(t *testing.T) {
	soup := geom.NewTriangleSoup()
	soup.AddMesh(flatQuad(0))
	soup.AddMesh(flatQuad(5))
	prims := newCountingPrims(soup)
	tr := twoLeafTree(2.5)

	// Approaching from the +Z side, primitive 1 (z=5) is near.
	r := geom.NewRay(geom.Vec3{X: 0, Y: 0, Z: 10}, geom.Vec3{X: 0, Y: 0, Z: -1})
	hit, ok := IntersectClosest(tr, prims, r)
	require.True(t, ok)
	assert.Equal(t, uint32(1), hit.Prim)
	assert.InDelta(t, 5, hit.T, 1e-6)
}

func TestShadowRayStopsAtFirstBlockingLeaf(t *testing.T) {
	soup := geom.NewTriangleSoup()
	soup.AddMesh(flatQuad(0))
	soup.AddMesh(flatQuad(5))
	prims := newCountingPrims(soup)
	tr := twoLeafTree(2.5)

	r := geom.NewRay(geom.Vec3{X: 0, Y: 0, Z: -10}, geom.Vec3{X: 0, Y: 0, Z: 1})
	ok := IntersectAny(tr, prims, r)
	require.True(t, ok)

	assert.Equal(t, 1, prims.anyCalls[0])
	assert.Equal(t, 0, prims.anyCalls[1], "far leaf must not be probed once the near leaf already blocks the ray")
}

func TestDescendOnPlaneTieRoutesTowardMotion(t *testing.T) {
	soup := geom.NewTriangleSoup()
	soup.AddMesh(flatQuad(0))
	soup.AddMesh(flatQuad(5))
	prims := newCountingPrims(soup)
	tr := twoLeafTree(2.5)

	// Origin sits exactly on the split plane (z=2.5) with zero Z motion: the
	// errata-fixed tie rule sends this ray to the left/near child first.
	r := geom.NewRay(geom.Vec3{X: 0, Y: 0, Z: 2.5}, geom.Vec3{X: 0.001, Y: 0, Z: 0})
	_, _ = IntersectClosest(tr, prims, r)

	assert.GreaterOrEqual(t, prims.detailedCalls[0], 1, "on-plane tie with zero Z motion must visit the left child")
}

func TestDescendMissesWhenRayEntirelyOutsideBox(t *testing.T) {
	soup := geom.NewTriangleSoup()
	soup.AddMesh(flatQuad(0))
	prims := newCountingPrims(soup)
	tr := twoLeafTree(2.5)

	r := geom.NewRay(geom.Vec3{X: 0, Y: 0, Z: -1000}, geom.Vec3{X: 1, Y: 0, Z: 0})
	_, ok := IntersectClosest(tr, prims, r)
	require.False(t, ok)
}

func TestDescendEmptyTreeNeverPanics(t *testing.T) {
	soup := geom.NewTriangleSoup()
	prims := newCountingPrims(soup)
	tr := Tree{Nodes: []node.Node{{}, node.MakeLeaf(0, 0)}, Box: geom.AABB{}}

	r := geom.NewRay(geom.Vec3{X: 0, Y: 0, Z: -10}, geom.Vec3{X: 0, Y: 0, Z: 1})
	_, ok := IntersectClosest(tr, prims, r)
	require.False(t, ok)

	require.NotPanics(t, func() {
		IntersectClosest(Tree{}, prims, r)
	})
}

func TestChildLeftResolvesThroughIndirectionTable(t *testing.T) {
	indir := []uint32{7}
	nodes := make([]node.Node, 8)
	nodes[1] = node.MakeInnerIndirect(0, uint8(geom.AxisX), 0)
	nodes[7] = node.MakeLeaf(0, 0)
	tr := Tree{Nodes: nodes, Indirection: indir}

	assert.Equal(t, 7, childLeft(tr, 1))
}
