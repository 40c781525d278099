package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreDefaultsToBoth(t *testing.T) {
	s := New(100)
	for i := uint32(0); i < 100; i++ {
		require.Equal(t, Both, s.Get(i))
	}
}

func TestStoreSetGet(t *testing.T) {
	s := New(70) // spans more than one 64-bit word (32 values/word)
	s.Set(0, Left)
	s.Set(31, Right)
	s.Set(32, Processed)
	s.Set(69, Left)

	require.Equal(t, Left, s.Get(0))
	require.Equal(t, Right, s.Get(31))
	require.Equal(t, Processed, s.Get(32))
	require.Equal(t, Left, s.Get(69))
	require.Equal(t, Both, s.Get(1))
}

func TestStoreReset(t *testing.T) {
	s := New(10)
	for i := uint32(0); i < 10; i++ {
		s.Set(i, Right)
	}
	s.Reset()
	for i := uint32(0); i < 10; i++ {
		require.Equal(t, Both, s.Get(i))
	}
}
