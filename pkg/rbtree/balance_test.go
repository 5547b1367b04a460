package rbtree //nolint:testpackage // tests inspect node flags and allocator state.

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// permutations calls fn with every ordering of keys. The slice passed to fn
// is reused between calls.
func permutations(keys []int, fn func([]int)) {
	perm := slices.Clone(keys)

	var walk func(int)

	walk = func(pos int) {
		if pos == len(perm) {
			fn(perm)

			return
		}

		for idx := pos; idx < len(perm); idx++ {
			perm[pos], perm[idx] = perm[idx], perm[pos]
			walk(pos + 1)
			perm[pos], perm[idx] = perm[idx], perm[pos]
		}
	}

	walk(0)
}

func seq(n int) []int {
	keys := make([]int, n)
	for idx := range keys {
		keys[idx] = idx + 1
	}

	return keys
}

// replay inserts then removes the keys in the given orders, validating the
// tree and the remaining contents after every step.
func replay(tb testing.TB, alloc *CountingAllocator[int, int], inserts, removes []int) {
	tb.Helper()

	m := NewIn[int, int](alloc)
	for _, key := range inserts {
		m.Insert(key, key)
		require.NoError(tb, m.Validate(), "insert %d of %v", key, inserts)
	}

	remaining := slices.Sorted(slices.Values(inserts))

	for _, key := range removes {
		value, ok := m.Remove(key)
		require.True(tb, ok)
		require.Equal(tb, key, value)
		require.NoError(tb, m.Validate(), "insert %v remove %v at %d", inserts, removes, key)

		idx, _ := slices.BinarySearch(remaining, key)
		remaining = slices.Delete(remaining, idx, idx+1)

		got := testKeys(m)
		if len(remaining) == 0 {
			require.Empty(tb, got)
		} else {
			require.Equal(tb, remaining, got)
		}
	}

	require.Zero(tb, alloc.Outstanding())
}

func TestExhaustiveSmallTrees(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 5; n++ {
		keys := seq(n)
		alloc := NewCountingAllocator[int, int](nil)

		permutations(keys, func(inserts []int) {
			inserts = slices.Clone(inserts)

			permutations(keys, func(removes []int) {
				replay(t, alloc, inserts, removes)
			})
		})
	}
}

func TestExhaustiveInsertOrders(t *testing.T) {
	t.Parallel()

	for _, n := range []int{6, 7} {
		keys := seq(n)
		alloc := NewCountingAllocator[int, int](nil)

		permutations(keys, func(inserts []int) {
			ascending := seq(n)
			descending := slices.Clone(ascending)
			slices.Reverse(descending)

			same := slices.Clone(inserts)
			reversed := slices.Clone(inserts)
			slices.Reverse(reversed)

			// Middle-out removal hits internal nodes with two children first.
			middleOut := make([]int, 0, n)
			for lo, hi := (n-1)/2, (n-1)/2+1; len(middleOut) < n; lo, hi = lo-1, hi+1 {
				if lo >= 0 {
					middleOut = append(middleOut, ascending[lo])
				}

				if hi < n {
					middleOut = append(middleOut, ascending[hi])
				}
			}

			for _, removes := range [][]int{ascending, descending, same, reversed, middleOut} {
				replay(t, alloc, same, removes)
			}
		})
	}
}

// TestRemoveCases builds trees by bulk construction, where the shape is fixed,
// and removes every key from every size, so each sibling configuration of
// the removal fixup is reached from a known starting shape.
func TestRemoveCases(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 40; n++ {
		for _, victim := range seq(n) {
			pairs := make([]Pair[int, int], n)
			for idx := range pairs {
				pairs[idx] = Pair[int, int]{Key: idx + 1, Value: idx + 1}
			}

			m, err := FromSorted(pairs)
			require.NoError(t, err)

			_, ok := m.Remove(victim)
			require.True(t, ok)
			require.NoError(t, m.Validate(), "n=%d victim=%d", n, victim)
			require.Equal(t, n-1, m.Len())
			require.False(t, m.Contains(victim))
		}
	}
}
