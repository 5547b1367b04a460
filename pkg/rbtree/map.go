// Package rbtree implements an ordered map as a red-black tree whose nodes
// live in a pluggable slot Allocator.
//
// Nodes keep an explicit parent link and a packed color/relation flag, so
// iteration climbs parent links instead of keeping a stack. A Map is not safe
// for concurrent use.
package rbtree

import (
	"cmp"
	"iter"

	"golang.org/x/exp/constraints"
)

// Map is an ordered map from K to V.
type Map[K, V any] struct {
	alloc  Allocator[K, V]
	cmp    func(a, b K) int
	root   Link
	length int

	// gen counts structural mutations. Entries and iterators capture it and
	// refuse to work once the map changed under them.
	gen uint64
}

// New creates an empty map ordered by the natural order of K.
func New[K constraints.Ordered, V any]() *Map[K, V] {
	return NewFuncIn[K, V](cmp.Compare[K], NewArena[K, V]())
}

// NewIn creates an empty map ordered by the natural order of K that allocates
// its nodes from alloc.
func NewIn[K constraints.Ordered, V any](alloc Allocator[K, V]) *Map[K, V] {
	return NewFuncIn(cmp.Compare[K], alloc)
}

// NewFunc creates an empty map ordered by compare, which must return a negative
// number when a < b, zero when a == b and a positive number when a > b.
func NewFunc[K, V any](compare func(a, b K) int) *Map[K, V] {
	return NewFuncIn(compare, NewArena[K, V]())
}

// NewFuncIn combines NewFunc and NewIn.
func NewFuncIn[K, V any](compare func(a, b K) int, alloc Allocator[K, V]) *Map[K, V] {
	if alloc == nil {
		alloc = NewArena[K, V]()
	}

	return &Map[K, V]{alloc: alloc, cmp: compare}
}

// Allocator returns the bound node allocator.
func (m *Map[K, V]) Allocator() Allocator[K, V] {
	return m.alloc
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.length
}

// IsEmpty reports whether the map has no entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.length == 0
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	link, _, found := m.search(key)
	if !found {
		var zero V

		return zero, false
	}

	return m.node(link).value, true
}

// GetPtr returns a pointer to the value stored under key, or nil. The pointer
// must not be used after the next removal from the map.
func (m *Map[K, V]) GetPtr(key K) *V {
	link, _, found := m.search(key)
	if !found {
		return nil
	}

	return &m.node(link).value
}

// GetKeyValue returns the stored key equal to key together with its value.
func (m *Map[K, V]) GetKeyValue(key K) (K, V, bool) {
	link, _, found := m.search(key)
	if !found {
		var (
			zeroK K
			zeroV V
		)

		return zeroK, zeroV, false
	}

	nd := m.node(link)

	return nd.key, nd.value, true
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool {
	_, _, found := m.search(key)

	return found
}

// MustGet returns the value stored under key and panics if there is none.
func (m *Map[K, V]) MustGet(key K) V {
	link, _, found := m.search(key)
	if !found {
		panic("rbtree: no entry found for key")
	}

	return m.node(link).value
}

// Insert stores value under key. If the key was present, the old value is
// replaced in place and returned with replaced set.
func (m *Map[K, V]) Insert(key K, value V) (old V, replaced bool) {
	link, rela, found := m.search(key)
	if found {
		nd := m.node(link)
		old, nd.value = nd.value, value

		return old, true
	}

	m.insertAt(link, rela, key, value)

	return old, false
}

// Extend inserts every pair yielded by seq.
func (m *Map[K, V]) Extend(seq iter.Seq2[K, V]) {
	for key, value := range seq {
		m.Insert(key, value)
	}
}

// Remove deletes key and returns its value. Removing a key whose node has two
// children moves the successor's entry into that node, so pointers obtained
// from GetPtr for the successor are invalidated too.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	_, value, ok := m.RemoveEntry(key)

	return value, ok
}

// RemoveEntry deletes key and returns the stored key and value.
func (m *Map[K, V]) RemoveEntry(key K) (K, V, bool) {
	link, _, found := m.search(key)
	if !found {
		var (
			zeroK K
			zeroV V
		)

		return zeroK, zeroV, false
	}

	storedKey, value := m.removeAt(link)

	return storedKey, value, true
}

// FirstKeyValue returns the entry with the smallest key.
func (m *Map[K, V]) FirstKeyValue() (K, V, bool) {
	return m.keyValue(m.minimum(m.root))
}

// LastKeyValue returns the entry with the largest key.
func (m *Map[K, V]) LastKeyValue() (K, V, bool) {
	return m.keyValue(m.maximum(m.root))
}

// PopFirst removes and returns the entry with the smallest key.
func (m *Map[K, V]) PopFirst() (K, V, bool) {
	return m.pop(m.minimum(m.root))
}

// PopLast removes and returns the entry with the largest key.
func (m *Map[K, V]) PopLast() (K, V, bool) {
	return m.pop(m.maximum(m.root))
}

// Ceiling returns the entry with the smallest key >= key.
func (m *Map[K, V]) Ceiling(key K) (K, V, bool) {
	best := Link(0)

	for cur := m.root; cur != 0; {
		nd := m.node(cur)

		switch c := m.cmp(key, nd.key); {
		case c == 0:
			return m.keyValue(cur)
		case c < 0:
			best = cur
			cur = nd.left()
		default:
			cur = nd.right()
		}
	}

	return m.keyValue(best)
}

// Floor returns the entry with the largest key <= key.
func (m *Map[K, V]) Floor(key K) (K, V, bool) {
	best := Link(0)

	for cur := m.root; cur != 0; {
		nd := m.node(cur)

		switch c := m.cmp(key, nd.key); {
		case c == 0:
			return m.keyValue(cur)
		case c > 0:
			best = cur
			cur = nd.right()
		default:
			cur = nd.left()
		}
	}

	return m.keyValue(best)
}

// Clear removes every entry, returning all nodes to the allocator. The walk
// uses an explicit stack, so even a degenerate tree is released safely.
func (m *Map[K, V]) Clear() {
	if m.root == 0 {
		return
	}

	stack := []Link{m.root}

	for len(stack) > 0 {
		link := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nd := m.node(link)
		for _, child := range nd.child {
			if child != 0 {
				stack = append(stack, child)
			}
		}

		m.alloc.Deallocate(link)
	}

	m.root = 0
	m.length = 0
	m.gen++
}

// EqualFunc reports whether both maps hold equal keys in the same order with
// values accepted by eq.
func (m *Map[K, V]) EqualFunc(other *Map[K, V], eq func(a, b V) bool) bool {
	if m.length != other.length {
		return false
	}

	mine, theirs := m.Iter(), other.Iter()

	for {
		k1, v1, ok := mine.Next()
		if !ok {
			return true
		}

		k2, v2, _ := theirs.Next()
		if m.cmp(k1, k2) != 0 || !eq(v1, v2) {
			return false
		}
	}
}

func (m *Map[K, V]) node(link Link) *Node[K, V] {
	return m.alloc.Node(link)
}

// search descends from the root. When key is found it returns the node and
// found. Otherwise it returns the last visited node and the side where key
// would hang, or a null link with the root relation for an empty tree.
func (m *Map[K, V]) search(key K) (Link, relation, bool) {
	if m.root == 0 {
		return 0, root, false
	}

	cur := m.root

	for {
		nd := m.node(cur)

		c := m.cmp(key, nd.key)
		if c == 0 {
			return cur, nd.flag.rela(), true
		}

		side := left
		if c > 0 {
			side = right
		}

		next := nd.child[side]
		if next == 0 {
			return cur, side, false
		}

		cur = next
	}
}

// insertAt links a new node under parent on the given side and restores the
// red-black shape.
func (m *Map[K, V]) insertAt(parent Link, side relation, key K, value V) Link {
	link := m.alloc.Allocate()
	nd := m.node(link)
	*nd = Node[K, V]{key: key, value: value, parent: parent}

	m.length++
	m.gen++

	if parent == 0 {
		nd.flag.setRela(root)
		m.root = link

		return link
	}

	nd.flag.setRela(side)
	nd.flag.setColor(red)
	m.node(parent).child[side] = link

	m.fixInsert(link)

	return link
}

// removeAt deletes the node and returns the key and value it held.
func (m *Map[K, V]) removeAt(link Link) (K, V) {
	nd := m.node(link)
	key, value := nd.key, nd.value

	victim := link
	if nd.left() != 0 && nd.right() != 0 {
		victim = m.minimum(nd.right())
		successor := m.node(victim)
		nd.key, nd.value = successor.key, successor.value
	}

	m.unlink(victim)
	m.alloc.Deallocate(victim)

	m.length--
	m.gen++

	return key, value
}

// unlink splices out a node with at most one child.
func (m *Map[K, V]) unlink(link Link) {
	nd := m.node(link)
	doAssert(nd.left() == 0 || nd.right() == 0)

	parent := nd.parent
	side := nd.flag.rela()

	child := nd.left()
	if child == 0 {
		child = nd.right()
	}

	if child != 0 {
		childNode := m.node(child)
		childNode.parent = parent
		childNode.flag.setRela(side)
	}

	if parent == 0 {
		m.root = child
	} else {
		m.node(parent).child[side] = child
	}

	if nd.flag.isRed() {
		return
	}

	if child != 0 {
		// A black node with a single child always has a red one.
		m.node(child).flag.setColor(black)

		return
	}

	if parent != 0 {
		m.fixRemove(parent, side)
	}
}

func (m *Map[K, V]) keyValue(link Link) (K, V, bool) {
	if link == 0 {
		var (
			zeroK K
			zeroV V
		)

		return zeroK, zeroV, false
	}

	nd := m.node(link)

	return nd.key, nd.value, true
}

func (m *Map[K, V]) pop(link Link) (K, V, bool) {
	if link == 0 {
		return m.keyValue(0)
	}

	key, value := m.removeAt(link)

	return key, value, true
}

func (m *Map[K, V]) minimum(link Link) Link {
	if link == 0 {
		return 0
	}

	for {
		next := m.node(link).left()
		if next == 0 {
			return link
		}

		link = next
	}
}

func (m *Map[K, V]) maximum(link Link) Link {
	if link == 0 {
		return 0
	}

	for {
		next := m.node(link).right()
		if next == 0 {
			return link
		}

		link = next
	}
}

// successor climbs while the node is a right child, so it never revisits the root.
func (m *Map[K, V]) successor(link Link) Link {
	nd := m.node(link)
	if nd.right() != 0 {
		return m.minimum(nd.right())
	}

	for nd.flag.rela() == right {
		link = nd.parent
		nd = m.node(link)
	}

	return nd.parent
}

func (m *Map[K, V]) predecessor(link Link) Link {
	nd := m.node(link)
	if nd.left() != 0 {
		return m.maximum(nd.left())
	}

	for nd.flag.rela() == left {
		link = nd.parent
		nd = m.node(link)
	}

	return nd.parent
}

func doAssert(condition bool) {
	if !condition {
		panic("rbtree: internal assertion failed")
	}
}
