package binning

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree/cost"
)

func TestBinnerFindsMiddleSplit(t *testing.T) {
	box := geom.AABB{Min: geom.Vec3{X: 0, Y: 0, Z: 0}, Max: geom.Vec3{X: 10, Y: 1, Z: 1}}
	var boxes []geom.AABB
	// Ten unit-ish boxes spread evenly along X: a good split should land
	// near the middle to balance left/right counts.
	for i := 0; i < 10; i++ {
		x0 := float64(i)
		boxes = append(boxes, geom.AABB{
			Min: geom.Vec3{X: x0, Y: 0, Z: 0},
			Max: geom.Vec3{X: x0 + 0.9, Y: 1, Z: 1},
		})
	}

	b := New(16)
	b.Reset(box)
	b.Bin(boxes)

	h := cost.SAH{Ktrav: 15, Kquery: 20, EmptyBonus: 0.9}
	best := b.MinimizeCost(h, len(boxes), box.SurfaceArea())

	require.True(t, best.Valid)
	require.Equal(t, uint8(0), best.Axis)
	require.InDelta(t, 5.0, best.Position, 1.5)
	require.Greater(t, best.NumLeft, 0)
	require.Greater(t, best.NumRight, 0)
}

func TestBinnerDegenerateAxis(t *testing.T) {
	// A box flat on Y (all primitives share the same Y extent): binning
	// that axis must not panic or divide by zero.
	box := geom.AABB{Min: geom.Vec3{X: 0, Y: 0, Z: 0}, Max: geom.Vec3{X: 1, Y: 0, Z: 1}}
	boxes := []geom.AABB{
		{Min: geom.Vec3{X: 0, Y: 0, Z: 0}, Max: geom.Vec3{X: 0.5, Y: 0, Z: 0.5}},
		{Min: geom.Vec3{X: 0.5, Y: 0, Z: 0.5}, Max: geom.Vec3{X: 1, Y: 0, Z: 1}},
	}
	b := New(8)
	b.Reset(box)
	b.Bin(boxes)

	h := cost.SAH{Ktrav: 15, Kquery: 20, EmptyBonus: 0.9}
	require.NotPanics(t, func() {
		b.MinimizeCost(h, len(boxes), box.SurfaceArea())
	})
}
