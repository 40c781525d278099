package node

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestNodeIsExactly8Bytes(t *testing.T) {
	require.Equal(t, uintptr(8), unsafe.Sizeof(Node{}))
}

func TestInnerNodeRoundTrip(t *testing.T) {
	n := MakeInner(42, 1, 3.5)
	require.False(t, n.IsLeaf())
	require.False(t, n.IsIndirect())
	require.Equal(t, uint8(1), n.Axis())
	require.Equal(t, uint32(42), n.Offset())
	require.InDelta(t, 3.5, n.Split(), 1e-9)
}

func TestInnerNodeIndirectRoundTrip(t *testing.T) {
	n := MakeInnerIndirect(7, 2, -1.25)
	require.False(t, n.IsLeaf())
	require.True(t, n.IsIndirect())
	require.Equal(t, uint8(2), n.Axis())
	require.Equal(t, uint32(7), n.Offset())
	require.InDelta(t, -1.25, n.Split(), 1e-9)
}

func TestLeafNodeRoundTrip(t *testing.T) {
	n := MakeLeaf(10, 20)
	require.True(t, n.IsLeaf())
	require.Equal(t, uint32(10), n.LeafStart())
	require.Equal(t, uint32(20), n.LeafEnd())
}

func TestLeafEmptyRange(t *testing.T) {
	n := MakeLeaf(0, 0)
	require.True(t, n.IsLeaf())
	require.Equal(t, uint32(0), n.LeafStart())
	require.Equal(t, uint32(0), n.LeafEnd())
}

func TestMaxRelOffsetPanics(t *testing.T) {
	require.NotPanics(t, func() { MakeInner(MaxRelOffset, 0, 0) })
	require.Panics(t, func() { MakeInner(MaxRelOffset+1, 0, 0) })
}

func TestIndirectionTable(t *testing.T) {
	var tbl IndirectionTable
	i0 := tbl.Append(100)
	i1 := tbl.Append(200)
	require.Equal(t, uint32(0), i0)
	require.Equal(t, uint32(1), i1)
	require.Equal(t, uint32(100), tbl.At(i0))
	require.Equal(t, uint32(200), tbl.At(i1))
	require.Equal(t, 2, tbl.Len())
	require.Equal(t, []uint32{100, 200}, tbl.Entries())
}
