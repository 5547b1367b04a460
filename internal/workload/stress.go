package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbmap/pkg/config"
	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbmap/pkg/safeconv"
)

// entryEvery selects how often a step goes through the Entry API instead of
// Insert or Remove.
const entryEvery = 4

// StressOptions configures a stress run.
type StressOptions struct {
	// Keys is the number of random insertions per worker.
	Keys int

	// Workers is the number of goroutines, each owning one map on its own
	// arena shard.
	Workers int

	// CheckEvery runs Validate after that many steps. Zero disables the
	// periodic checks; the phase boundaries are still verified.
	CheckEvery int

	// KeySpace multiplies Keys to get the key range.
	KeySpace int

	Seed int64

	// Hibernate compresses and restores every shard between the insert and
	// remove phases.
	Hibernate bool

	HibernationThreshold int
}

// StressOptionsFromConfig maps the loaded configuration.
func StressOptionsFromConfig(cfg *config.Config) StressOptions {
	return StressOptions{
		Keys:                 cfg.Stress.Keys,
		Workers:              cfg.Stress.Workers,
		CheckEvery:           cfg.Stress.CheckEvery,
		KeySpace:             cfg.Stress.KeySpace,
		Seed:                 cfg.Stress.Seed,
		Hibernate:            cfg.Arena.Hibernate,
		HibernationThreshold: cfg.Arena.HibernationThreshold,
	}
}

// WorkerReport counts what a single worker did.
type WorkerReport struct {
	Worker   int
	Inserted int
	Replaced int
	Removed  int
	Checks   int
	PeakLen  int
	Leaked   int
}

// StressReport summarizes a stress run.
type StressReport struct {
	Workers    []WorkerReport
	Elapsed    time.Duration
	PeakNodes  int
	Hibernated bool
}

// Ops returns the number of map mutations performed by all workers.
func (sr *StressReport) Ops() int {
	total := 0
	for _, wr := range sr.Workers {
		total += wr.Inserted + wr.Replaced + wr.Removed
	}

	return total
}

type stressWorker struct {
	opts      StressOptions
	rng       *rand.Rand
	alloc     *rbtree.CountingAllocator[uint64, uint64]
	tree      *rbtree.Map[uint64, uint64]
	reference map[uint64]uint64
	report    WorkerReport
	steps     int
}

func newStressWorker(id int, opts StressOptions, arena *rbtree.Arena[uint64, uint64]) *stressWorker {
	alloc := rbtree.NewCountingAllocator[uint64, uint64](arena)

	return &stressWorker{
		opts:      opts,
		rng:       rand.New(rand.NewPCG(uint64(opts.Seed), safeconv.MustIntToUint64(id))), //nolint:gosec // seeds wrap.
		alloc:     alloc,
		tree:      rbtree.NewIn[uint64, uint64](alloc),
		reference: make(map[uint64]uint64, opts.Keys),
		report:    WorkerReport{Worker: id},
	}
}

type phaseFunc func(w *stressWorker, ctx context.Context) (int, error)

// Stress runs the insert, verify, remove and leak phases on opts.Workers
// maps in parallel. A failing phase stops the run; the partial report is
// returned along with the error.
func (r *Runner) Stress(ctx context.Context, opts StressOptions) (*StressReport, error) {
	ctx, span := r.tracer.Start(ctx, "rbmap.stress", trace.WithAttributes(
		attribute.Int("stress.keys", opts.Keys),
		attribute.Int("stress.workers", opts.Workers),
		attribute.Int64("stress.seed", opts.Seed),
	))
	defer span.End()

	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	if opts.KeySpace < 1 {
		opts.KeySpace = 1
	}

	arenas := rbtree.NewShardedArena[uint64, uint64](opts.Workers, opts.HibernationThreshold)

	workers := make([]*stressWorker, opts.Workers)
	for idx := range workers {
		workers[idx] = newStressWorker(idx, opts, arenas.ShardAt(idx))
	}

	report := &StressReport{}
	start := time.Now()

	err := r.runPhase(ctx, "insert", workers, (*stressWorker).insertPhase)
	report.PeakNodes = arenas.Used()
	r.addLiveNodes(ctx, report.PeakNodes)

	if err == nil && opts.Hibernate {
		err = r.hibernate(ctx, arenas)
		report.Hibernated = err == nil
	}

	if err == nil {
		err = r.runPhase(ctx, "verify", workers, (*stressWorker).verifyPhase)
	}

	if err == nil {
		err = r.runPhase(ctx, "remove", workers, (*stressWorker).removePhase)
	}

	if err == nil {
		err = r.runPhase(ctx, "leak", workers, (*stressWorker).leakPhase)
	}

	r.addLiveNodes(ctx, -report.PeakNodes)

	report.Elapsed = time.Since(start)
	for _, w := range workers {
		report.Workers = append(report.Workers, w.report)
	}

	span.SetAttributes(attribute.Int("stress.ops", report.Ops()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stress run failed")

		return report, err
	}

	r.logger.InfoContext(ctx, "stress run passed",
		"workers", len(workers), "ops", report.Ops(), "peak_nodes", report.PeakNodes, "elapsed", report.Elapsed)

	return report, nil
}

func (r *Runner) runPhase(ctx context.Context, phase string, workers []*stressWorker, fn phaseFunc) error {
	ctx, span := r.tracer.Start(ctx, "rbmap.stress."+phase)
	defer span.End()

	var (
		errs []error
		ops  int
		mu   sync.Mutex
	)

	start := time.Now()

	wg := sync.WaitGroup{}
	wg.Add(len(workers))

	for idx, w := range workers {
		go func(workerIdx int, worker *stressWorker) {
			defer wg.Done()

			done, err := fn(worker, ctx)

			mu.Lock()
			defer mu.Unlock()

			ops += done

			if err != nil {
				errs = append(errs, fmt.Errorf("worker %d %s: %w", workerIdx, phase, err))
			}
		}(idx, w)
	}

	wg.Wait()

	elapsed := time.Since(start)
	r.recordPhase(ctx, phase, phase, ops, elapsed)
	r.logger.DebugContext(ctx, "stress phase finished", "phase", phase, "ops", ops, "elapsed", elapsed)

	err := errors.Join(errs...)
	if err != nil {
		r.recordFailure(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, phase+" failed")
		r.logger.ErrorContext(ctx, "stress phase failed", "phase", phase, "error", err)
	}

	return err
}

func (r *Runner) hibernate(ctx context.Context, arenas *rbtree.ShardedArena[uint64, uint64]) error {
	_, span := r.tracer.Start(ctx, "rbmap.stress.hibernate")
	defer span.End()

	start := time.Now()

	err := arenas.Hibernate()
	if err == nil {
		err = arenas.Boot()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hibernate failed")

		return fmt.Errorf("hibernate arenas: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RecordHibernation(ctx)
	}

	r.logger.DebugContext(ctx, "arenas hibernated and booted", "elapsed", time.Since(start))

	return nil
}

func (w *stressWorker) step() error {
	w.steps++
	w.report.PeakLen = max(w.report.PeakLen, w.tree.Len())

	if w.opts.CheckEvery == 0 || w.steps%w.opts.CheckEvery != 0 {
		return nil
	}

	return w.check()
}

func (w *stressWorker) check() error {
	w.report.Checks++

	err := w.tree.Validate()
	if err != nil {
		return fmt.Errorf("%w after %d steps: %w", ErrCheck, w.steps, err)
	}

	if w.tree.Len() != len(w.reference) {
		return fmt.Errorf("%w: length %d, reference %d", ErrMismatch, w.tree.Len(), len(w.reference))
	}

	return nil
}

func (w *stressWorker) insertPhase(ctx context.Context) (int, error) {
	space := safeconv.MustIntToUint64(w.opts.Keys * w.opts.KeySpace)
	ops := 0

	for range w.opts.Keys {
		if ctx.Err() != nil {
			return ops, ctx.Err()
		}

		key, value := w.rng.Uint64N(space), w.rng.Uint64()
		refOld, refHad := w.reference[key]

		var (
			old      uint64
			replaced bool
		)

		if w.rng.IntN(entryEvery) == 0 {
			slot := w.tree.Entry(key).AndModify(func(prev *uint64) {
				old, replaced = *prev, true
			}).OrInsert(value)
			*slot = value
		} else {
			old, replaced = w.tree.Insert(key, value)
		}

		if replaced != refHad || old != refOld {
			return ops, fmt.Errorf("%w: insert %d returned (%d, %t), want (%d, %t)",
				ErrMismatch, key, old, replaced, refOld, refHad)
		}

		w.reference[key] = value

		if replaced {
			w.report.Replaced++
		} else {
			w.report.Inserted++
		}

		ops++

		err := w.step()
		if err != nil {
			return ops, err
		}
	}

	return ops, w.check()
}

func (w *stressWorker) verifyPhase(_ context.Context) (int, error) {
	err := w.check()
	if err != nil {
		return 0, err
	}

	count := 0

	var prev uint64

	for key, value := range w.tree.All() {
		if count > 0 && key <= prev {
			return count, fmt.Errorf("%w: key %d after %d", ErrCheck, key, prev)
		}

		want, ok := w.reference[key]
		if !ok || want != value {
			return count, fmt.Errorf("%w: key %d holds %d, want %d (present %t)", ErrMismatch, key, value, want, ok)
		}

		prev = key
		count++
	}

	if count != w.tree.Len() {
		return count, fmt.Errorf("%w: walked %d entries of %d", ErrCheck, count, w.tree.Len())
	}

	// Walk back from both ends until the cursors meet.
	it := w.tree.Iter()
	for it.Len() > 0 {
		_, _, okFront := it.Next()
		_, _, okBack := it.NextBack()

		if !okFront {
			return count, fmt.Errorf("%w: double-ended iterator ended early", ErrCheck)
		}

		if !okBack && it.Len() != 0 {
			return count, fmt.Errorf("%w: double-ended iterator lost elements", ErrCheck)
		}
	}

	return count, nil
}

func (w *stressWorker) removePhase(ctx context.Context) (int, error) {
	keys := slices.Collect(w.tree.Keys())
	w.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	ops := 0

	for _, key := range keys {
		if ctx.Err() != nil {
			return ops, ctx.Err()
		}

		var (
			value   uint64
			removed bool
		)

		if w.rng.IntN(entryEvery) == 0 {
			if occupied, ok := w.tree.Entry(key).Occupied(); ok {
				_, value = occupied.RemoveEntry()
				removed = true
			}
		} else {
			value, removed = w.tree.Remove(key)
		}

		if !removed || value != w.reference[key] {
			return ops, fmt.Errorf("%w: remove %d returned (%d, %t), want (%d, true)",
				ErrMismatch, key, value, removed, w.reference[key])
		}

		delete(w.reference, key)
		w.report.Removed++
		ops++

		err := w.step()
		if err != nil {
			return ops, err
		}
	}

	return ops, w.check()
}

func (w *stressWorker) leakPhase(_ context.Context) (int, error) {
	if !w.tree.IsEmpty() {
		return 0, fmt.Errorf("%w: %d entries left after removal", ErrMismatch, w.tree.Len())
	}

	w.report.Leaked = w.alloc.Outstanding()

	return 0, verifyReleased(w.alloc)
}
