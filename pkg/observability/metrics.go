package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricOpsTotal       = "rbmap.ops.total"
	metricPhaseDuration  = "rbmap.phase.duration.seconds"
	metricLiveNodes      = "rbmap.nodes.live"
	metricFailuresTotal  = "rbmap.check.failures.total"
	metricArenaHibernate = "rbmap.arena.hibernations.total"

	attrOp    = "op"
	attrPhase = "phase"
	attrCheck = "check"
)

// durationBucketBoundaries covers 1ms to 120s workload phases.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120}

// TreeMetrics holds the instruments recorded by tree workloads.
type TreeMetrics struct {
	opsTotal      metric.Int64Counter
	phaseDuration metric.Float64Histogram
	liveNodes     metric.Int64UpDownCounter
	failures      metric.Int64Counter
	hibernations  metric.Int64Counter
}

// NewTreeMetrics creates the instruments from the given meter.
func NewTreeMetrics(mt metric.Meter) (*TreeMetrics, error) {
	opsTotal, err := mt.Int64Counter(metricOpsTotal,
		metric.WithDescription("Tree operations performed"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpsTotal, err)
	}

	phaseDuration, err := mt.Float64Histogram(metricPhaseDuration,
		metric.WithDescription("Duration of a workload phase in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPhaseDuration, err)
	}

	liveNodes, err := mt.Int64UpDownCounter(metricLiveNodes,
		metric.WithDescription("Nodes currently allocated by workload trees"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLiveNodes, err)
	}

	failures, err := mt.Int64Counter(metricFailuresTotal,
		metric.WithDescription("Invariant or leak check failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFailuresTotal, err)
	}

	hibernations, err := mt.Int64Counter(metricArenaHibernate,
		metric.WithDescription("Arena hibernate and boot cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricArenaHibernate, err)
	}

	return &TreeMetrics{
		opsTotal:      opsTotal,
		phaseDuration: phaseDuration,
		liveNodes:     liveNodes,
		failures:      failures,
		hibernations:  hibernations,
	}, nil
}

// RecordPhase records a finished phase that ran ops operations of kind op.
func (tm *TreeMetrics) RecordPhase(ctx context.Context, phase, op string, ops int, duration time.Duration) {
	tm.opsTotal.Add(ctx, int64(ops), metric.WithAttributes(attribute.String(attrOp, op)))
	tm.phaseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrPhase, phase)))
}

// AddLiveNodes moves the live node gauge by delta.
func (tm *TreeMetrics) AddLiveNodes(ctx context.Context, delta int) {
	tm.liveNodes.Add(ctx, int64(delta))
}

// RecordFailure counts a failed check of the given kind.
func (tm *TreeMetrics) RecordFailure(ctx context.Context, check string) {
	tm.failures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCheck, check)))
}

// RecordHibernation counts an arena hibernate and boot cycle.
func (tm *TreeMetrics) RecordHibernation(ctx context.Context) {
	tm.hibernations.Add(ctx, 1)
}
