package rbtree

const (
	staleHandle   = "rbtree: map mutated while an entry or iterator was alive"
	consumedEntry = "rbtree: entry used after Insert or RemoveEntry consumed it"
)

// Entry is the result of a single search for a key: either an occupied slot
// or the place where the key would be linked. Any structural change of the
// map made outside the entry invalidates it, and using it afterwards panics.
// VacantEntry.Insert and OccupiedEntry.RemoveEntry consume their entry.
type Entry[K, V any] struct {
	m    *Map[K, V]
	gen  uint64
	key  K
	link Link
	side relation
	hit  bool
}

// OccupiedEntry is an Entry whose key is present.
type OccupiedEntry[K, V any] struct {
	m        *Map[K, V]
	gen      uint64
	link     Link
	consumed bool
}

// VacantEntry is an Entry whose key is absent.
type VacantEntry[K, V any] struct {
	m      *Map[K, V]
	gen    uint64
	key    K
	parent Link
	side   relation

	consumed bool
}

// Entry searches for key once and returns a handle to read, update or insert it.
func (m *Map[K, V]) Entry(key K) Entry[K, V] {
	link, side, found := m.search(key)

	return Entry[K, V]{m: m, gen: m.gen, key: key, link: link, side: side, hit: found}
}

// FirstEntry returns the entry with the smallest key.
func (m *Map[K, V]) FirstEntry() (*OccupiedEntry[K, V], bool) {
	return m.occupied(m.minimum(m.root))
}

// LastEntry returns the entry with the largest key.
func (m *Map[K, V]) LastEntry() (*OccupiedEntry[K, V], bool) {
	return m.occupied(m.maximum(m.root))
}

func (m *Map[K, V]) occupied(link Link) (*OccupiedEntry[K, V], bool) {
	if link == 0 {
		return nil, false
	}

	return &OccupiedEntry[K, V]{m: m, gen: m.gen, link: link}, true
}

func (m *Map[K, V]) checkEntry(gen uint64, consumed bool) {
	if consumed {
		panic(consumedEntry)
	}

	m.checkGen(gen)
}

func (m *Map[K, V]) checkGen(gen uint64) {
	if m.gen != gen {
		panic(staleHandle)
	}
}

// Key returns the stored key of an occupied entry or the probe key of a vacant one.
func (e Entry[K, V]) Key() K {
	e.m.checkGen(e.gen)

	if e.hit {
		return e.m.node(e.link).key
	}

	return e.key
}

// Occupied returns the occupied variant.
func (e Entry[K, V]) Occupied() (*OccupiedEntry[K, V], bool) {
	if !e.hit {
		return nil, false
	}

	return &OccupiedEntry[K, V]{m: e.m, gen: e.gen, link: e.link}, true
}

// Vacant returns the vacant variant.
func (e Entry[K, V]) Vacant() (*VacantEntry[K, V], bool) {
	if e.hit {
		return nil, false
	}

	return &VacantEntry[K, V]{m: e.m, gen: e.gen, key: e.key, parent: e.link, side: e.side}, true
}

// AndModify applies fn to the value of an occupied entry.
func (e Entry[K, V]) AndModify(fn func(value *V)) Entry[K, V] {
	if occupied, ok := e.Occupied(); ok {
		fn(occupied.GetMut())
	}

	return e
}

// OrInsert inserts value when the entry is vacant and returns a pointer to
// the stored value.
func (e Entry[K, V]) OrInsert(value V) *V {
	return e.OrInsertWithKey(func(K) V { return value })
}

// OrInsertWith is OrInsert with a lazily computed value.
func (e Entry[K, V]) OrInsertWith(fn func() V) *V {
	return e.OrInsertWithKey(func(K) V { return fn() })
}

// OrInsertWithKey is OrInsertWith with the key passed to the constructor.
func (e Entry[K, V]) OrInsertWithKey(fn func(key K) V) *V {
	if occupied, ok := e.Occupied(); ok {
		return occupied.GetMut()
	}

	vacant, _ := e.Vacant()

	return vacant.Insert(fn(vacant.Key()))
}

// OrZero inserts the zero value when the entry is vacant.
func (e Entry[K, V]) OrZero() *V {
	var zero V

	return e.OrInsert(zero)
}

// Key returns the stored key.
func (e *OccupiedEntry[K, V]) Key() K {
	e.m.checkEntry(e.gen, e.consumed)

	return e.m.node(e.link).key
}

// Get returns the stored value.
func (e *OccupiedEntry[K, V]) Get() V {
	e.m.checkEntry(e.gen, e.consumed)

	return e.m.node(e.link).value
}

// GetMut returns a pointer to the stored value, valid until the next removal.
func (e *OccupiedEntry[K, V]) GetMut() *V {
	e.m.checkEntry(e.gen, e.consumed)

	return &e.m.node(e.link).value
}

// IntoMut is GetMut. It exists for symmetry with VacantEntry.Insert.
func (e *OccupiedEntry[K, V]) IntoMut() *V {
	return e.GetMut()
}

// Insert swaps in value and returns the previous one.
func (e *OccupiedEntry[K, V]) Insert(value V) V {
	ptr := e.GetMut()
	old := *ptr
	*ptr = value

	return old
}

// Remove deletes the entry and returns its value.
func (e *OccupiedEntry[K, V]) Remove() V {
	_, value := e.RemoveEntry()

	return value
}

// RemoveEntry deletes the entry and returns the stored key and value. The
// entry is consumed and panics on further use.
func (e *OccupiedEntry[K, V]) RemoveEntry() (K, V) {
	e.m.checkEntry(e.gen, e.consumed)
	e.consumed = true

	return e.m.removeAt(e.link)
}

// Key returns the key that Insert would store.
func (e *VacantEntry[K, V]) Key() K {
	e.m.checkEntry(e.gen, e.consumed)

	return e.key
}

// IntoKey gives the key back without inserting.
func (e *VacantEntry[K, V]) IntoKey() K {
	return e.key
}

// Insert links the key with value and returns a pointer to the stored value.
// The entry is consumed: only IntoKey remains usable.
func (e *VacantEntry[K, V]) Insert(value V) *V {
	e.m.checkEntry(e.gen, e.consumed)
	e.consumed = true

	link := e.m.insertAt(e.parent, e.side, e.key, value)

	return &e.m.node(link).value
}
