package rbtree

import (
	"cmp"
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"golang.org/x/exp/constraints"
)

// ErrUnsorted is returned when bulk input is not strictly ascending by key.
var ErrUnsorted = errors.New("pairs are not strictly ascending")

// Pair is a key-value record for bulk construction.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Clone returns a deep copy that allocates from a fork of the map's allocator.
// The copy has the same shape and colors as the original.
func (m *Map[K, V]) Clone() *Map[K, V] {
	return m.CloneIn(m.alloc.Fork())
}

// CloneIn is Clone into the given allocator.
func (m *Map[K, V]) CloneIn(alloc Allocator[K, V]) *Map[K, V] {
	clone := NewFuncIn(m.cmp, alloc)
	if m.root == 0 {
		return clone
	}

	clone.root = clone.copyNode(m.node(m.root), 0)
	clone.length = m.length

	type task struct{ from, to Link }

	stack := []task{{from: m.root, to: clone.root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, side := range [2]relation{left, right} {
			from := m.node(top.from).child[side]
			if from == 0 {
				continue
			}

			to := clone.copyNode(m.node(from), top.to)
			clone.node(top.to).child[side] = to
			stack = append(stack, task{from: from, to: to})
		}
	}

	return clone
}

// copyNode allocates a node with the key, value and flag of src hanging under parent.
func (m *Map[K, V]) copyNode(src *Node[K, V], parent Link) Link {
	key, value, fl := src.key, src.value, src.flag

	link := m.alloc.Allocate()
	*m.node(link) = Node[K, V]{key: key, value: value, parent: parent, flag: fl}

	return link
}

// FromSorted builds a map from pairs sorted by strictly ascending key in
// linear time, without searching or rebalancing.
func FromSorted[K constraints.Ordered, V any](pairs []Pair[K, V]) (*Map[K, V], error) {
	return FromSortedIn(cmp.Compare[K], NewArena[K, V](), pairs)
}

// FromSortedFunc is FromSorted with a custom order.
func FromSortedFunc[K, V any](compare func(a, b K) int, pairs []Pair[K, V]) (*Map[K, V], error) {
	return FromSortedIn(compare, NewArena[K, V](), pairs)
}

// FromSortedIn is FromSortedFunc allocating from alloc.
func FromSortedIn[K, V any](compare func(a, b K) int, alloc Allocator[K, V], pairs []Pair[K, V]) (*Map[K, V], error) {
	for idx := 1; idx < len(pairs); idx++ {
		if compare(pairs[idx-1].Key, pairs[idx].Key) >= 0 {
			return nil, fmt.Errorf("%w: at index %d", ErrUnsorted, idx)
		}
	}

	m := NewFuncIn(compare, alloc)
	if len(pairs) == 0 {
		return m, nil
	}

	// A balanced split leaves every null link on the last two levels. When
	// the last level is incomplete, its nodes are red and the rest black.
	levels := bits.Len(uint(len(pairs)))

	redLevel := levels - 1
	if len(pairs) == 1<<levels-1 {
		redLevel = -1
	}

	m.root = m.build(pairs, 0, root, 0, redLevel)
	m.length = len(pairs)

	return m, nil
}

func (m *Map[K, V]) build(pairs []Pair[K, V], parent Link, side relation, level, redLevel int) Link {
	if len(pairs) == 0 {
		return 0
	}

	mid := len(pairs) / 2

	link := m.alloc.Allocate()
	nd := m.node(link)
	*nd = Node[K, V]{key: pairs[mid].Key, value: pairs[mid].Value, parent: parent}
	nd.flag.setRela(side)

	if level == redLevel {
		nd.flag.setColor(red)
	}

	leftChild := m.build(pairs[:mid], link, left, level+1, redLevel)
	rightChild := m.build(pairs[mid+1:], link, right, level+1, redLevel)

	nd = m.node(link)
	nd.child[left] = leftChild
	nd.child[right] = rightChild

	return link
}

// Collect builds a map from pairs in any order. For duplicate keys the last
// pair wins.
func Collect[K constraints.Ordered, V any](pairs []Pair[K, V]) *Map[K, V] {
	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, func(a, b Pair[K, V]) int {
		return cmp.Compare(a.Key, b.Key)
	})

	unique := sorted[:0]

	for _, p := range sorted {
		if n := len(unique); n > 0 && cmp.Compare(unique[n-1].Key, p.Key) == 0 {
			unique[n-1] = p

			continue
		}

		unique = append(unique, p)
	}

	m, err := FromSorted(unique)
	doAssert(err == nil)

	return m
}
