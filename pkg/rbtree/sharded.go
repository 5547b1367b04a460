package rbtree

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
)

// ErrShards is returned when some shards failed to hibernate or boot.
var ErrShards = errors.New("sharded arena")

// minHibernationThreshold is the minimal reasonable default if division results in 0.
const minHibernationThreshold = 1000

// ShardedArena is a fixed set of arenas. Each shard is a regular single
// threaded Arena; different shards may be used from different goroutines.
type ShardedArena[K, V any] struct {
	shards []*Arena[K, V]
}

// NewShardedArena creates shardCount arenas which split hibernationThreshold evenly.
func NewShardedArena[K, V any](shardCount, hibernationThreshold int) *ShardedArena[K, V] {
	if shardCount <= 0 {
		shardCount = 1
	}

	shards := make([]*Arena[K, V], shardCount)

	for idx := range shardCount {
		shards[idx] = NewArena[K, V]()

		if hibernationThreshold > 0 {
			shards[idx].HibernationThreshold = hibernationThreshold / shardCount
			if shards[idx].HibernationThreshold == 0 {
				shards[idx].HibernationThreshold = minHibernationThreshold
			}
		}
	}

	return &ShardedArena[K, V]{shards: shards}
}

// Shard returns the arena that owns the given name.
func (sa *ShardedArena[K, V]) Shard(name string) *Arena[K, V] {
	hasher := fnv.New32a()
	hasher.Write([]byte(name))

	return sa.shards[hasher.Sum32()%uint32(len(sa.shards))]
}

// ShardAt returns the idx-th arena.
func (sa *ShardedArena[K, V]) ShardAt(idx int) *Arena[K, V] {
	return sa.shards[idx]
}

// Shards returns all underlying arenas.
func (sa *ShardedArena[K, V]) Shards() []*Arena[K, V] {
	return sa.shards
}

// Used sums the allocated slots over all active shards.
func (sa *ShardedArena[K, V]) Used() int {
	total := 0

	for _, shard := range sa.shards {
		if !shard.Hibernated() {
			total += shard.Used()
		}
	}

	return total
}

// Hibernate hibernates all shards in parallel, ignoring their thresholds.
func (sa *ShardedArena[K, V]) Hibernate() error {
	return sa.parallel("hibernate", func(arena *Arena[K, V]) error {
		threshold := arena.HibernationThreshold
		arena.HibernationThreshold = 0

		defer func() { arena.HibernationThreshold = threshold }()

		return arena.Hibernate()
	})
}

// Boot boots all shards in parallel.
func (sa *ShardedArena[K, V]) Boot() error {
	return sa.parallel("boot", (*Arena[K, V]).Boot)
}

func (sa *ShardedArena[K, V]) parallel(action string, fn func(*Arena[K, V]) error) error {
	var (
		errs []error
		mu   sync.Mutex
	)

	wg := sync.WaitGroup{}
	wg.Add(len(sa.shards))

	for idx, shard := range sa.shards {
		go func(shardIdx int, arena *Arena[K, V]) {
			defer wg.Done()

			err := fn(arena)
			if err != nil {
				mu.Lock()

				errs = append(errs, fmt.Errorf("shard %d: %w", shardIdx, err))

				mu.Unlock()
			}
		}(idx, shard)
	}

	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %w", ErrShards, action, errors.Join(errs...))
	}

	return nil
}
