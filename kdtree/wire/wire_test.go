package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree/node"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Nodes: []node.Node{
			{}, // alignment slot
			node.MakeInner(2, 0, 1.5),
			node.MakeLeaf(0, 2),
			node.MakeLeaf(2, 5),
		},
		PrimIndices: []uint32{10, 11, 20, 21, 22},
		Indirection: []uint32{7},
		Box: geom.AABB{
			Min: geom.Vec3{X: -1, Y: -2, Z: -3},
			Max: geom.Vec3{X: 4, Y: 5, Z: 6},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sampleSnapshot()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))

	out, err := Decode(&buf)
	require.NoError(t, err)

	require.Equal(t, in.Nodes, out.Nodes)
	require.Equal(t, in.PrimIndices, out.PrimIndices)
	require.Equal(t, in.Indirection, out.Indirection)
	require.Equal(t, in.Box, out.Box)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("nope, not a tree stream at all")
	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestEncodeDecodeEmptyTree(t *testing.T) {
	in := Snapshot{
		Nodes: []node.Node{{}, node.MakeLeaf(0, 0)},
		Box:   geom.AABB{},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))

	out, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, in.Nodes, out.Nodes)
	require.Empty(t, out.PrimIndices)
	require.Empty(t, out.Indirection)
}
