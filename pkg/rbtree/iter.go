package rbtree

import "iter"

// lazyPoint is one end of a cursor. Until it moves it holds the root and the
// extremum is computed on first use; afterwards it holds the last yielded node.
type lazyPoint struct {
	link   Link
	moving bool
}

// cursor walks the map from both ends. Only the remaining count terminates
// it: the ends are never compared with each other.
type cursor[K, V any] struct {
	m         *Map[K, V]
	gen       uint64
	front     lazyPoint
	back      lazyPoint
	remaining int
}

func newCursor[K, V any](m *Map[K, V]) cursor[K, V] {
	return cursor[K, V]{
		m:         m,
		gen:       m.gen,
		front:     lazyPoint{link: m.root},
		back:      lazyPoint{link: m.root},
		remaining: m.length,
	}
}

func (c *cursor[K, V]) next() *Node[K, V] {
	if c.remaining == 0 {
		return nil
	}

	c.m.checkGen(c.gen)

	if c.front.moving {
		c.front.link = c.m.successor(c.front.link)
	} else {
		c.front = lazyPoint{link: c.m.minimum(c.front.link), moving: true}
	}

	c.remaining--

	return c.m.node(c.front.link)
}

func (c *cursor[K, V]) nextBack() *Node[K, V] {
	if c.remaining == 0 {
		return nil
	}

	c.m.checkGen(c.gen)

	if c.back.moving {
		c.back.link = c.m.predecessor(c.back.link)
	} else {
		c.back = lazyPoint{link: c.m.maximum(c.back.link), moving: true}
	}

	c.remaining--

	return c.m.node(c.back.link)
}

// Iter yields entries in ascending key order from the front and in
// descending order from the back.
type Iter[K, V any] struct {
	cursor[K, V]
}

// Iter returns an iterator over all entries. The map must not be structurally
// modified while the iterator is in use.
func (m *Map[K, V]) Iter() *Iter[K, V] {
	return &Iter[K, V]{newCursor(m)}
}

// Len returns the number of entries not yet yielded.
func (it *Iter[K, V]) Len() int { return it.remaining }

// Next yields the smallest entry not yet yielded.
func (it *Iter[K, V]) Next() (K, V, bool) {
	return pair(it.next())
}

// NextBack yields the largest entry not yet yielded.
func (it *Iter[K, V]) NextBack() (K, V, bool) {
	return pair(it.nextBack())
}

func pair[K, V any](nd *Node[K, V]) (K, V, bool) {
	if nd == nil {
		var (
			zeroK K
			zeroV V
		)

		return zeroK, zeroV, false
	}

	return nd.key, nd.value, true
}

// IterMut is Iter with pointers to the values.
type IterMut[K, V any] struct {
	cursor[K, V]
}

// IterMut returns an iterator that allows updating values in place.
func (m *Map[K, V]) IterMut() *IterMut[K, V] {
	return &IterMut[K, V]{newCursor(m)}
}

// Len returns the number of entries not yet yielded.
func (it *IterMut[K, V]) Len() int { return it.remaining }

// Next yields the smallest entry not yet yielded.
func (it *IterMut[K, V]) Next() (K, *V, bool) {
	return pairMut(it.next())
}

// NextBack yields the largest entry not yet yielded.
func (it *IterMut[K, V]) NextBack() (K, *V, bool) {
	return pairMut(it.nextBack())
}

func pairMut[K, V any](nd *Node[K, V]) (K, *V, bool) {
	if nd == nil {
		var zeroK K

		return zeroK, nil, false
	}

	return nd.key, &nd.value, true
}

// Values yields the values in key order.
type Values[K, V any] struct {
	cursor[K, V]
}

// Values returns an iterator over the values.
func (m *Map[K, V]) Values() *Values[K, V] {
	return &Values[K, V]{newCursor(m)}
}

// Len returns the number of values not yet yielded.
func (it *Values[K, V]) Len() int { return it.remaining }

// Next yields the value of the smallest key not yet visited.
func (it *Values[K, V]) Next() (V, bool) {
	_, value, ok := pair(it.next())

	return value, ok
}

// NextBack yields the value of the largest key not yet visited.
func (it *Values[K, V]) NextBack() (V, bool) {
	_, value, ok := pair(it.nextBack())

	return value, ok
}

// ValuesMut yields pointers to the values in key order.
type ValuesMut[K, V any] struct {
	cursor[K, V]
}

// ValuesMut returns an iterator over pointers to the values.
func (m *Map[K, V]) ValuesMut() *ValuesMut[K, V] {
	return &ValuesMut[K, V]{newCursor(m)}
}

// Len returns the number of values not yet yielded.
func (it *ValuesMut[K, V]) Len() int { return it.remaining }

// Next yields a pointer to the value of the smallest key not yet visited.
func (it *ValuesMut[K, V]) Next() (*V, bool) {
	_, value, ok := pairMut(it.next())

	return value, ok
}

// NextBack yields a pointer to the value of the largest key not yet visited.
func (it *ValuesMut[K, V]) NextBack() (*V, bool) {
	_, value, ok := pairMut(it.nextBack())

	return value, ok
}

// All returns an iterator over key-value pairs in ascending key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		it := m.Iter()

		for key, value, ok := it.Next(); ok; key, value, ok = it.Next() {
			if !yield(key, value) {
				return
			}
		}
	}
}

// Backward returns an iterator over key-value pairs in descending key order.
func (m *Map[K, V]) Backward() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		it := m.Iter()

		for key, value, ok := it.NextBack(); ok; key, value, ok = it.NextBack() {
			if !yield(key, value) {
				return
			}
		}
	}
}

// Keys returns an iterator over the keys in ascending order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for key := range m.All() {
			if !yield(key) {
				return
			}
		}
	}
}
