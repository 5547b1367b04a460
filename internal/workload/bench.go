package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbmap/pkg/alg/stats"
	"github.com/Sumatoshi-tech/rbmap/pkg/config"
	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbmap/pkg/safeconv"
)

// ErrBenchSize is returned for a non-positive size or round count.
var ErrBenchSize = errors.New("bench sizes and rounds must be positive")

// Benchmarked operations, in report order.
const (
	OpInsert     = "insert"
	OpGet        = "get"
	OpIterate    = "iterate"
	OpClone      = "clone"
	OpRemove     = "remove"
	OpFromSorted = "from_sorted"
)

// BenchOps lists the benchmarked operations in report order.
var BenchOps = []string{OpInsert, OpGet, OpIterate, OpClone, OpRemove, OpFromSorted}

// BenchOptions configures a benchmark run.
type BenchOptions struct {
	Sizes  []int
	Rounds int
	Seed   int64
}

// BenchOptionsFromConfig maps the loaded configuration.
func BenchOptionsFromConfig(cfg *config.Config) BenchOptions {
	return BenchOptions{Sizes: cfg.Bench.Sizes, Rounds: cfg.Bench.Rounds, Seed: cfg.Stress.Seed}
}

// BenchResult is the accumulated time of one operation at one map size.
type BenchResult struct {
	Op     string
	Size   int
	Rounds int
	Total  time.Duration

	// Per-element time across rounds: population standard deviation,
	// median and 95th percentile.
	StdDev time.Duration
	P50    time.Duration
	P95    time.Duration
}

// PerOp returns the mean time per element.
func (br BenchResult) PerOp() time.Duration {
	elements := br.Size * br.Rounds
	if elements == 0 {
		return 0
	}

	return br.Total / time.Duration(elements)
}

// Bench times every operation in BenchOps on maps of each size. Results are
// ordered by size, then by BenchOps.
func (r *Runner) Bench(ctx context.Context, opts BenchOptions) ([]BenchResult, error) {
	if opts.Rounds <= 0 {
		return nil, fmt.Errorf("%w: rounds %d", ErrBenchSize, opts.Rounds)
	}

	ctx, span := r.tracer.Start(ctx, "rbmap.bench", trace.WithAttributes(
		attribute.IntSlice("bench.sizes", opts.Sizes),
		attribute.Int("bench.rounds", opts.Rounds),
	))
	defer span.End()

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0)) //nolint:gosec // seeds wrap.
	results := make([]BenchResult, 0, len(opts.Sizes)*len(BenchOps))

	for _, size := range opts.Sizes {
		if size <= 0 {
			return results, fmt.Errorf("%w: size %d", ErrBenchSize, size)
		}

		totals := make(map[string]time.Duration, len(BenchOps))
		samples := make(map[string][]time.Duration, len(BenchOps))

		for range opts.Rounds {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}

			round := make(map[string]time.Duration, len(BenchOps))

			err := benchRound(rng, size, round)
			if err != nil {
				return results, err
			}

			for op, elapsed := range round {
				totals[op] += elapsed
				samples[op] = append(samples[op], elapsed/time.Duration(size))
			}
		}

		for _, op := range BenchOps {
			perElement := stats.Durations(samples[op])
			_, stddev := stats.MeanStdDev(perElement)

			result := BenchResult{
				Op:     op,
				Size:   size,
				Rounds: opts.Rounds,
				Total:  totals[op],
				StdDev: time.Duration(stddev),
				P50:    time.Duration(stats.Median(perElement)),
				P95:    time.Duration(stats.Percentile(perElement, stats.PercentileP95)),
			}
			results = append(results, result)

			r.recordPhase(ctx, "bench", op, size*opts.Rounds, result.Total)
		}

		r.logger.DebugContext(ctx, "bench size finished", "size", size, "insert_per_op", totals[OpInsert]/time.Duration(size*opts.Rounds))
	}

	return results, nil
}

func benchRound(rng *rand.Rand, size int, totals map[string]time.Duration) error {
	keys := make([]uint64, size)
	for idx, perm := range rng.Perm(size) {
		keys[idx] = safeconv.MustIntToUint64(perm)
	}

	timed := func(op string, fn func()) {
		start := time.Now()
		fn()
		totals[op] += time.Since(start)
	}

	tree := rbtree.New[uint64, uint64]()

	timed(OpInsert, func() {
		for _, key := range keys {
			tree.Insert(key, key)
		}
	})

	missing := 0

	timed(OpGet, func() {
		for _, key := range keys {
			if _, ok := tree.Get(key); !ok {
				missing++
			}
		}
	})

	if missing != 0 {
		return fmt.Errorf("%w: %d keys missing after insert", ErrMismatch, missing)
	}

	walked := 0

	timed(OpIterate, func() {
		for range tree.All() {
			walked++
		}
	})

	var clone *rbtree.Map[uint64, uint64]

	timed(OpClone, func() { clone = tree.Clone() })

	timed(OpRemove, func() {
		for _, key := range keys {
			tree.Remove(key)
		}
	})

	if walked != size || clone.Len() != size || !tree.IsEmpty() {
		return fmt.Errorf("%w: walked %d, cloned %d, left %d of %d", ErrMismatch, walked, clone.Len(), tree.Len(), size)
	}

	pairs := make([]rbtree.Pair[uint64, uint64], size)
	for idx := range pairs {
		key := safeconv.MustIntToUint64(idx)
		pairs[idx] = rbtree.Pair[uint64, uint64]{Key: key, Value: key}
	}

	var buildErr error

	timed(OpFromSorted, func() { _, buildErr = rbtree.FromSorted(pairs) })

	return buildErr
}
