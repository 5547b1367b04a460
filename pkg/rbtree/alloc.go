package rbtree

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/Sumatoshi-tech/rbmap/internal/colpack"
	"github.com/Sumatoshi-tech/rbmap/pkg/safeconv"
)

// Allocator hands out node slots to a Map.
//
// Allocate must return a zeroed slot and panic when no slot can be produced:
// a tree that cannot grow has no meaningful way to continue. Node
// dereferences a live slot; the pointer stays valid until the slot is
// deallocated. Fork returns an empty allocator configured like the receiver
// and is used by Map.Clone.
type Allocator[K, V any] interface {
	Allocate() Link
	Deallocate(link Link)
	Node(link Link) *Node[K, V]
	Fork() Allocator[K, V]
}

const (
	pageBits = 10
	pageSize = 1 << pageBits
	pageMask = pageSize - 1

	// maxSlots keeps [math.MaxUint32] unused so that slot counts fit in uint32.
	maxSlots = math.MaxUint32
)

// Arena is the default Allocator. Slots live in fixed-size pages, so a slot
// never moves while it is allocated. Freed slots are recycled LIFO. Slot 0 is
// reserved and stands for the null Link.
//
// An Arena may be shared by any number of maps with the same K and V. It is
// not safe for concurrent use.
type Arena[K, V any] struct {
	pages [][]Node[K, V]
	live  []uint64
	free  []Link
	size  int

	// HibernationThreshold is the minimal number of slots for Hibernate to
	// compress anything.
	HibernationThreshold int

	frozen *frozenArena[K, V]
}

const hibernatedUse = "rbtree: hibernated arenas cannot be used"

// NewArena creates an empty arena.
func NewArena[K, V any]() *Arena[K, V] {
	return &Arena[K, V]{}
}

// Size returns the number of slots reserved so far, including the null slot.
func (arena *Arena[K, V]) Size() int {
	if arena.frozen != nil {
		return arena.frozen.size
	}

	return arena.size
}

// Used returns the number of allocated slots.
func (arena *Arena[K, V]) Used() int {
	if arena.frozen != nil {
		panic(hibernatedUse)
	}

	if arena.size == 0 {
		return 0
	}

	return arena.size - 1 - len(arena.free)
}

// Hibernated reports whether the arena is compressed.
func (arena *Arena[K, V]) Hibernated() bool {
	return arena.frozen != nil
}

// Fork returns an empty arena with the same hibernation threshold.
func (arena *Arena[K, V]) Fork() Allocator[K, V] {
	return &Arena[K, V]{HibernationThreshold: arena.HibernationThreshold}
}

// Allocate reserves a zeroed slot.
func (arena *Arena[K, V]) Allocate() Link {
	if arena.frozen != nil {
		panic(hibernatedUse)
	}

	if count := len(arena.free); count > 0 {
		link := arena.free[count-1]
		arena.free = arena.free[:count-1]
		arena.markLive(link, true)

		return link
	}

	if arena.size == 0 {
		// Zero is reserved.
		arena.grow()
		arena.size = 1
	}

	if arena.size >= maxSlots {
		panic("rbtree: arena exhausted, cannot allocate another node")
	}

	if arena.size>>pageBits == len(arena.pages) {
		arena.grow()
	}

	link := Link(safeconv.MustIntToUint32(arena.size))
	arena.size++
	arena.markLive(link, true)

	return link
}

// Deallocate zeroes the slot and makes it available again.
func (arena *Arena[K, V]) Deallocate(link Link) {
	if arena.frozen != nil {
		panic(hibernatedUse)
	}

	if link == 0 {
		panic("rbtree: slot #0 is reserved and cannot be deallocated")
	}

	doAssert(int(link) < arena.size && arena.isLive(link))

	*arena.Node(link) = Node[K, V]{}
	arena.markLive(link, false)
	arena.free = append(arena.free, link)
}

// Node dereferences an allocated slot.
func (arena *Arena[K, V]) Node(link Link) *Node[K, V] {
	if arena.frozen != nil {
		panic(hibernatedUse)
	}

	return &arena.pages[link>>pageBits][link&pageMask]
}

func (arena *Arena[K, V]) grow() {
	arena.pages = append(arena.pages, make([]Node[K, V], pageSize))
	arena.live = append(arena.live, make([]uint64, pageSize/64)...)
}

func (arena *Arena[K, V]) isLive(link Link) bool {
	return arena.live[link/64]&(1<<(link%64)) != 0
}

func (arena *Arena[K, V]) markLive(link Link, live bool) {
	if live {
		arena.live[link/64] |= 1 << (link % 64)
	} else {
		arena.live[link/64] &^= 1 << (link % 64)
	}
}

// frozenArena is the compressed form of an arena: the topology columns are
// packed with LZ4 while keys and values stay in a dense slice.
type frozenArena[K, V any] struct {
	size    int
	free    int
	columns [4][]byte
	freeCol []byte
	items   []frozenItem[K, V]
}

type frozenItem[K, V any] struct {
	key   K
	value V
}

const (
	columnLeft = iota
	columnRight
	columnParent
	columnFlag
)

// ErrHibernate is returned when the arena could not be compressed or restored.
var ErrHibernate = errors.New("arena hibernation failed")

// Hibernate compresses the arena when it holds at least HibernationThreshold
// slots. A hibernated arena panics on use until Boot is called. Maps keep
// their links across a Hibernate/Boot cycle.
func (arena *Arena[K, V]) Hibernate() error {
	if arena.frozen != nil {
		panic("rbtree: cannot hibernate an already hibernated arena")
	}

	if arena.size < arena.HibernationThreshold {
		return nil
	}

	frozen := &frozenArena[K, V]{
		size:  arena.size,
		free:  len(arena.free),
		items: make([]frozenItem[K, V], arena.size),
	}

	columns := [4][]uint32{}
	for idx := range columns {
		columns[idx] = make([]uint32, arena.size)
	}

	// We deinterleave to achieve a better compression ratio.
	for idx := 1; idx < arena.size; idx++ {
		nd := arena.Node(Link(safeconv.MustIntToUint32(idx)))
		columns[columnLeft][idx] = uint32(nd.child[left])
		columns[columnRight][idx] = uint32(nd.child[right])
		columns[columnParent][idx] = uint32(nd.parent)
		columns[columnFlag][idx] = uint32(nd.flag)
		frozen.items[idx] = frozenItem[K, V]{key: nd.key, value: nd.value}
	}

	freeColumn := make([]uint32, len(arena.free))
	for idx, link := range arena.free {
		freeColumn[idx] = uint32(link)
	}

	slices.Sort(freeColumn)
	colpack.DeltaEncode(freeColumn)

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for idx, column := range columns {
		wg.Add(1)

		go func(colIdx int, col []uint32) {
			defer wg.Done()

			packed, err := colpack.Pack(col)
			if err != nil {
				record(fmt.Errorf("column %d: %w", colIdx, err))

				return
			}

			frozen.columns[colIdx] = packed
		}(idx, column)
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		packed, err := colpack.Pack(freeColumn)
		if err != nil {
			record(fmt.Errorf("free list: %w", err))

			return
		}

		frozen.freeCol = packed
	}()

	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrHibernate, errors.Join(errs...))
	}

	arena.frozen = frozen
	arena.pages = nil
	arena.live = nil
	arena.free = nil

	return nil
}

// Boot restores a hibernated arena. Booting an active arena does nothing.
func (arena *Arena[K, V]) Boot() error {
	frozen := arena.frozen
	if frozen == nil {
		return nil
	}

	columns := [4][]uint32{}
	freeColumn := make([]uint32, frozen.free)

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	for idx := range columns {
		columns[idx] = make([]uint32, frozen.size)

		wg.Add(1)

		go func(colIdx int) {
			defer wg.Done()

			err := colpack.Unpack(frozen.columns[colIdx], columns[colIdx])
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("column %d: %w", colIdx, err))
				mu.Unlock()
			}
		}(idx)
	}

	err := colpack.Unpack(frozen.freeCol, freeColumn)

	wg.Wait()

	if err != nil {
		errs = append(errs, fmt.Errorf("free list: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrHibernate, errors.Join(errs...))
	}

	colpack.DeltaDecode(freeColumn)

	arena.frozen = nil
	arena.size = frozen.size
	arena.pages = nil
	arena.live = nil

	for len(arena.pages)*pageSize < frozen.size {
		arena.grow()
	}

	for idx := 1; idx < frozen.size; idx++ {
		link := Link(safeconv.MustIntToUint32(idx))
		nd := arena.Node(link)
		nd.child[left] = Link(columns[columnLeft][idx])
		nd.child[right] = Link(columns[columnRight][idx])
		nd.parent = Link(columns[columnParent][idx])
		nd.flag = flag(safeconv.MustUint32ToUint8(columns[columnFlag][idx]))
		nd.key = frozen.items[idx].key
		nd.value = frozen.items[idx].value
		arena.markLive(link, true)
	}

	// Keep the lowest free slots on top so that reuse stays compact.
	arena.free = make([]Link, len(freeColumn))
	for idx, slot := range freeColumn {
		link := Link(slot)
		arena.free[len(freeColumn)-1-idx] = link
		arena.markLive(link, false)
	}

	return nil
}

// CountingAllocator decorates an Allocator with a count of outstanding slots.
// It is a debugging aid: Verify panics when slots are still allocated after
// every map using the allocator has been cleared.
type CountingAllocator[K, V any] struct {
	inner       Allocator[K, V]
	outstanding int
}

// NewCountingAllocator wraps inner. A nil inner wraps a fresh Arena.
func NewCountingAllocator[K, V any](inner Allocator[K, V]) *CountingAllocator[K, V] {
	if inner == nil {
		inner = NewArena[K, V]()
	}

	return &CountingAllocator[K, V]{inner: inner}
}

// Allocate forwards to the wrapped allocator.
func (counter *CountingAllocator[K, V]) Allocate() Link {
	link := counter.inner.Allocate()
	counter.outstanding++

	return link
}

// Deallocate forwards to the wrapped allocator.
func (counter *CountingAllocator[K, V]) Deallocate(link Link) {
	counter.inner.Deallocate(link)
	counter.outstanding--
}

// Node forwards to the wrapped allocator.
func (counter *CountingAllocator[K, V]) Node(link Link) *Node[K, V] {
	return counter.inner.Node(link)
}

// Fork wraps a fork of the inner allocator with a fresh count.
func (counter *CountingAllocator[K, V]) Fork() Allocator[K, V] {
	return NewCountingAllocator(counter.inner.Fork())
}

// Outstanding returns the number of slots allocated and not yet released.
func (counter *CountingAllocator[K, V]) Outstanding() int {
	return counter.outstanding
}

// Verify panics if any slot is still outstanding.
func (counter *CountingAllocator[K, V]) Verify() {
	if counter.outstanding != 0 {
		panic(fmt.Sprintf("rbtree: memory leak detected: %d nodes outstanding", counter.outstanding))
	}
}
