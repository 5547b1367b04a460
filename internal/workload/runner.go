// Package workload drives rbtree maps through randomized stress runs,
// timing benchmarks and scripted scenarios, reporting through slog,
// OpenTelemetry spans and tree metrics.
package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/rbmap/pkg/observability"
	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
)

// Failure classes. Each one is also a value of the "check" metric attribute.
var (
	ErrCheck    = errors.New("invariant check failed")
	ErrMismatch = errors.New("map disagrees with reference")
	ErrLeak     = errors.New("allocator leak")
)

const tracerName = "github.com/Sumatoshi-tech/rbmap/internal/workload"

// Runner executes workloads. The zero value is not usable; see NewRunner.
type Runner struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.TreeMetrics
}

// NewRunner creates a Runner. A nil tracer or metrics disables the
// corresponding signal.
func NewRunner(logger *slog.Logger, tracer trace.Tracer, metrics *observability.TreeMetrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}

	return &Runner{logger: logger, tracer: tracer, metrics: metrics}
}

func (r *Runner) recordPhase(ctx context.Context, phase, op string, ops int, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordPhase(ctx, phase, op, ops, elapsed)
	}
}

func (r *Runner) addLiveNodes(ctx context.Context, delta int) {
	if r.metrics != nil && delta != 0 {
		r.metrics.AddLiveNodes(ctx, delta)
	}
}

func (r *Runner) recordFailure(ctx context.Context, err error) {
	if r.metrics == nil {
		return
	}

	for _, class := range []struct {
		err   error
		check string
	}{
		{ErrCheck, "validate"},
		{ErrMismatch, "reference"},
		{ErrLeak, "leak"},
	} {
		if errors.Is(err, class.err) {
			r.metrics.RecordFailure(ctx, class.check)
		}
	}
}

// verifyReleased turns the leak panic of a counting allocator into an error.
func verifyReleased[K, V any](alloc *rbtree.CountingAllocator[K, V]) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrLeak, recovered)
		}
	}()

	alloc.Verify()

	return nil
}
