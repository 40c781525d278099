package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocateWithinSlab(t *testing.T) {
	a := New()
	xs, _ := Allocate[int32](a, 10)
	require.Len(t, xs, 10)
	for _, v := range xs {
		require.Zero(t, v)
	}
	xs[0] = 7
	xs[9] = 9
	require.Equal(t, int32(7), xs[0])
	require.Equal(t, int32(9), xs[9])
}

func TestArenaSpansMultipleSlabs(t *testing.T) {
	a := New()
	big := slabSize/4 + 1024
	xs, _ := Allocate[int32](a, big)
	require.Len(t, xs, big)
	require.True(t, len(a.slabs) >= 1)

	ys, _ := Allocate[int32](a, big)
	require.Len(t, ys, big)
	// Writing into the second allocation must not corrupt the first.
	for i := range xs {
		xs[i] = 1
	}
	for i := range ys {
		ys[i] = 2
	}
	for i := range xs {
		require.Equal(t, int32(1), xs[i])
	}
}

func TestArenaReleaseIsLIFO(t *testing.T) {
	a := New()
	mark1 := a.Mark()
	_, _ = Allocate[byte](a, 100)
	mark2 := a.Mark()
	_, _ = Allocate[byte](a, 100)

	a.Release(mark2)
	zs, _ := Allocate[byte](a, 50)
	require.Len(t, zs, 50)

	a.Release(mark1)
	ws, _ := Allocate[byte](a, 10)
	require.Len(t, ws, 10)
}

func TestArenaMerge(t *testing.T) {
	a := New()
	b := New()
	_, _ = Allocate[byte](a, 10)
	_, _ = Allocate[byte](b, 20)

	a.Merge(b)
	require.Empty(t, b.slabs)
	require.Len(t, a.slabs, 2)
}

func TestArenaCleanup(t *testing.T) {
	a := New()
	_, _ = Allocate[byte](a, 10)
	a.Cleanup()
	require.Empty(t, a.slabs)
}

func TestShrink(t *testing.T) {
	a := New()
	mark := a.Mark()
	xs, m := Allocate[int32](a, 20)
	for i := range xs {
		xs[i] = int32(i)
	}
	ys := Shrink(a, m, xs, 5)
	require.Len(t, ys, 5)
	require.Equal(t, int32(0), ys[0])
	require.Equal(t, int32(4), ys[4])

	// Allocating again after Shrink should reuse the freed tail.
	zs, _ := Allocate[int32](a, 3)
	require.Len(t, zs, 3)
	_ = mark
}

func TestBlockedVectorPushAndAt(t *testing.T) {
	bv := NewBlockedVector[int](int(unsafe.Sizeof(int(0))))
	for i := 0; i < 1000; i++ {
		idx := bv.Push(i)
		require.Equal(t, i, idx)
	}
	require.Equal(t, 1000, bv.Len())
	for i := 0; i < 1000; i++ {
		require.Equal(t, i, bv.At(i))
	}
}

func TestBlockedVectorAllocateNContiguous(t *testing.T) {
	bv := NewBlockedVector[int](int(unsafe.Sizeof(int(0))))
	bv.Push(1)
	s, start := bv.AllocateN(4)
	require.Len(t, s, 4)
	require.Equal(t, 1, start)
	for i := range s {
		s[i] = i * 10
	}
	require.Equal(t, 0, bv.At(1))
	require.Equal(t, 30, bv.At(4))
}

func TestBlockedVectorTruncate(t *testing.T) {
	bv := NewBlockedVector[int](int(unsafe.Sizeof(int(0))))
	for i := 0; i < 10; i++ {
		bv.Push(i)
	}
	bv.Truncate(4)
	require.Equal(t, 4, bv.Len())
	dst := bv.AppendTo(nil)
	require.Equal(t, []int{0, 1, 2, 3}, dst)
}

func TestBlockedVectorForEachOrder(t *testing.T) {
	bv := NewBlockedVector[int](int(unsafe.Sizeof(int(0))))
	for i := 0; i < 50; i++ {
		bv.Push(i)
	}
	seen := make([]int, 0, 50)
	bv.ForEach(func(i int, v int) {
		require.Equal(t, i, v)
		seen = append(seen, v)
	})
	require.Len(t, seen, 50)
}
