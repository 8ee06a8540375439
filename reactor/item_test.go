package reactor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlabAllocGetFree(t *testing.T) {
	s := newSlab()
	it1 := &item{fd: 10}
	id1 := s.alloc(it1)
	require.Equal(t, uint32(0), id1.Index)

	got, ok := s.get(id1)
	require.True(t, ok)
	require.Same(t, it1, got)
	require.Equal(t, 1, s.len())

	s.free_(id1)
	require.Equal(t, 0, s.len())

	_, ok = s.get(id1)
	require.False(t, ok, "stale EventID must not resolve after free")
}

func TestSlabReusesFreedSlotsWithNewGeneration(t *testing.T) {
	s := newSlab()
	it1 := &item{fd: 1}
	id1 := s.alloc(it1)
	s.free_(id1)

	it2 := &item{fd: 2}
	id2 := s.alloc(it2)

	require.Equal(t, id1.Index, id2.Index, "freed slot should be reused")
	require.NotEqual(t, id1.Generation, id2.Generation)

	_, ok := s.get(id1)
	require.False(t, ok)
	got2, ok := s.get(id2)
	require.True(t, ok)
	require.Same(t, it2, got2)
}

func TestSlabAll(t *testing.T) {
	s := newSlab()
	a := s.alloc(&item{fd: 1})
	_ = s.alloc(&item{fd: 2})
	s.free_(a)
	_ = s.alloc(&item{fd: 3})

	require.Len(t, s.all(), 2)
}
