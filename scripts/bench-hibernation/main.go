// bench-hibernation measures heap memory before and after hibernating the
// arenas of a set of populated maps.
//
// Usage:
//
//	go run ./scripts/bench-hibernation --keys 1000000 --shards 8 \
//	  --profile-dir docs/profiles/hibernation
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
)

type heapSnapshot struct {
	label     string
	heapInUse uint64
	heapSys   uint64
	heapIdle  uint64
}

func main() {
	keys := flag.Int("keys", 1_000_000, "Keys inserted per shard")
	shards := flag.Int("shards", 4, "Arena shards, one map each")
	seed := flag.Uint64("seed", 1, "Random seed")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles (optional)")

	flag.Parse()

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	var snapshots []heapSnapshot

	snapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			heapIdle:  m.HeapIdle,
		})

		log.Printf("  [heap] %-28s inuse=%9s  sys=%9s  idle=%9s",
			label, humanize.Bytes(m.HeapInuse), humanize.Bytes(m.HeapSys), humanize.Bytes(m.HeapIdle))

		writeHeapProfile(*profileDir, label)
	}

	snapshot("start")

	arenas := rbtree.NewShardedArena[uint64, uint64](*shards, 0)
	maps := make([]*rbtree.Map[uint64, uint64], *shards)
	rng := rand.New(rand.NewPCG(*seed, 0)) //nolint:gosec // benchmark keys.

	for idx := range maps {
		maps[idx] = rbtree.NewIn[uint64, uint64](arenas.ShardAt(idx))

		for range *keys {
			key := rng.Uint64()
			maps[idx].Insert(key, key)
		}
	}

	log.Printf("populated %d maps, %s nodes", len(maps), humanize.Comma(int64(arenas.Used())))
	snapshot("populated")

	start := time.Now()

	if err := arenas.Hibernate(); err != nil {
		log.Fatalf("hibernate: %v", err)
	}

	log.Printf("hibernated in %s", time.Since(start))
	snapshot("hibernated")

	start = time.Now()

	if err := arenas.Boot(); err != nil {
		log.Fatalf("boot: %v", err)
	}

	log.Printf("booted in %s", time.Since(start))

	for idx, tree := range maps {
		if err := tree.Validate(); err != nil {
			log.Fatalf("map %d corrupted by hibernation: %v", idx, err)
		}
	}

	snapshot("booted")

	fmt.Printf("%-28s %12s %12s %12s\n", "Phase", "InUse", "Sys", "Idle")

	for _, snap := range snapshots {
		fmt.Printf("%-28s %12s %12s %12s\n",
			snap.label, humanize.Bytes(snap.heapInUse), humanize.Bytes(snap.heapSys), humanize.Bytes(snap.heapIdle))
	}

	populated, hibernated := snapshots[1].heapInUse, snapshots[2].heapInUse
	if hibernated < populated {
		freed := populated - hibernated
		fmt.Printf("  populated -> hibernated: %s freed (%.1f%%)\n",
			humanize.Bytes(freed), float64(freed)/float64(populated)*100)
	}
}

func writeHeapProfile(dir, label string) {
	if dir == "" {
		return
	}

	path := filepath.Join(dir, label+".heap.prof")

	f, ferr := os.Create(path)
	if ferr != nil {
		log.Printf("warning: create heap profile %s: %v", path, ferr)

		return
	}
	defer f.Close()

	if perr := pprof.WriteHeapProfile(f); perr != nil {
		log.Printf("warning: write heap profile %s: %v", path, perr)
	}
}
