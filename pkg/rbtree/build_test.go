package rbtree //nolint:testpackage // tests inspect node flags and allocator state.

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedPairs(n int) []Pair[int, int] {
	pairs := make([]Pair[int, int], n)
	for idx := range pairs {
		pairs[idx] = Pair[int, int]{Key: idx * 2, Value: idx}
	}

	return pairs
}

func TestFromSorted(t *testing.T) {
	t.Parallel()

	for n := range 300 {
		m, err := FromSorted(sortedPairs(n))
		require.NoError(t, err)
		require.NoError(t, m.Validate(), "n=%d", n)
		require.Equal(t, n, m.Len())

		idx := 0
		for key, value := range m.All() {
			require.Equal(t, idx*2, key)
			require.Equal(t, idx, value)

			idx++
		}

		require.Equal(t, n, idx)
	}
}

func TestFromSortedThenMutate(t *testing.T) {
	t.Parallel()

	m, err := FromSorted(sortedPairs(100))
	require.NoError(t, err)

	for key := 1; key < 200; key += 2 {
		m.Insert(key, -key)
		require.NoError(t, m.Validate())
	}

	for key := 0; key < 200; key += 3 {
		m.Remove(key)
		require.NoError(t, m.Validate())
	}
}

func TestFromSortedShape(t *testing.T) {
	t.Parallel()

	// Seven nodes make a perfect tree: all black.
	m, err := FromSorted(sortedPairs(7))
	require.NoError(t, err)
	assert.Equal(t,
		"[B,T,6,3]\n"+
			"[B,L,2,1] [B,R,10,5]\n"+
			"[B,L,0,0] [B,R,4,2] [B,L,8,4] [B,R,12,6]\n",
		m.String())

	// The incomplete last level is red.
	m, err = FromSorted(sortedPairs(4))
	require.NoError(t, err)
	assert.Equal(t,
		"[B,T,4,2]\n"+
			"[B,L,2,1] [B,R,6,3]\n"+
			"[R,L,0,0]\n",
		m.String())
}

func TestFromSortedRejectsUnsorted(t *testing.T) {
	t.Parallel()

	_, err := FromSorted([]Pair[int, int]{{Key: 1}, {Key: 3}, {Key: 2}})
	require.ErrorIs(t, err, ErrUnsorted)

	_, err = FromSorted([]Pair[int, int]{{Key: 1}, {Key: 1}})
	require.ErrorIs(t, err, ErrUnsorted)
}

func TestFromSortedFunc(t *testing.T) {
	t.Parallel()

	descending := func(a, b int) int { return cmp.Compare(b, a) }

	m, err := FromSortedFunc(descending, []Pair[int, string]{{3, "c"}, {2, "b"}, {1, "a"}})
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, []int{3, 2, 1}, testKeys(m))

	m.Insert(4, "d")
	assert.Equal(t, []int{4, 3, 2, 1}, testKeys(m))
}

func TestFromSortedIn(t *testing.T) {
	t.Parallel()

	alloc := NewCountingAllocator[int, int](nil)

	m, err := FromSortedIn(cmp.Compare[int], alloc, sortedPairs(50))
	require.NoError(t, err)
	assert.Equal(t, 50, alloc.Outstanding())

	m.Clear()
	assert.NotPanics(t, alloc.Verify)
}

func TestCollect(t *testing.T) {
	t.Parallel()

	m := Collect([]Pair[string, int]{{"b", 1}, {"a", 2}, {"b", 3}, {"c", 4}, {"a", 5}})
	require.NoError(t, m.Validate())
	assert.Equal(t, []string{"a", "b", "c"}, testKeys(m))
	assert.Equal(t, 5, m.MustGet("a"))
	assert.Equal(t, 3, m.MustGet("b"))
}

func TestCloneIndependence(t *testing.T) {
	t.Parallel()

	original := New[int, int]()
	for key := range 500 {
		original.Insert((key*37)%500, key)
	}

	clone := original.Clone()
	require.NoError(t, clone.Validate())
	assert.Equal(t, original.String(), clone.String(), "clone keeps shape and colors")
	assert.NotSame(t, original.Allocator(), clone.Allocator())

	for key := range 250 {
		clone.Remove(key)
		clone.Insert(key+1000, key)
	}

	*clone.GetPtr(400) = -1

	require.NoError(t, original.Validate())
	require.NoError(t, clone.Validate())
	assert.Equal(t, 500, original.Len())
	assert.True(t, original.Contains(0))
	assert.False(t, original.Contains(1000))
	assert.NotEqual(t, -1, original.MustGet(400))

	original.Clear()
	assert.Equal(t, 500, clone.Len())
	require.NoError(t, clone.Validate())
}

func TestCloneCountingAllocator(t *testing.T) {
	t.Parallel()

	alloc := NewCountingAllocator[int, int](nil)
	m := NewIn[int, int](alloc)

	for key := range 64 {
		m.Insert(key, key)
	}

	clone := m.Clone()

	cloneAlloc, ok := clone.Allocator().(*CountingAllocator[int, int])
	require.True(t, ok)
	assert.Equal(t, 64, cloneAlloc.Outstanding())
	assert.Equal(t, 64, alloc.Outstanding())

	clone.Clear()
	m.Clear()
	assert.NotPanics(t, cloneAlloc.Verify)
	assert.NotPanics(t, alloc.Verify)
}

func TestCloneEmpty(t *testing.T) {
	t.Parallel()

	clone := New[int, int]().Clone()
	assert.True(t, clone.IsEmpty())
	require.NoError(t, clone.Validate())
}
