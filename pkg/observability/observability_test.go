package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sumatoshi-tech/rbmap/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()
	assert.NotNil(t, ctx)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestNewLogger_JSONWithTraceContext(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Environment = "ci"
	cfg.Command = "stress"

	var buf bytes.Buffer

	logger := observability.NewLogger(cfg, &buf)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.WithGroup("tree").InfoContext(ctx, "validated", slog.Int("nodes", 3))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "rbmap", record["service"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "stress", record["command"])
	assert.Equal(t, "validated", record["msg"])
	assert.Equal(t, span.SpanContext().TraceID().String(), record["tree"].(map[string]any)["trace_id"])
}

func TestNewLogger_LevelFilter(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	var buf bytes.Buffer

	logger := observability.NewLogger(cfg, &buf)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "a=1", want: map[string]string{"a": "1"}},
		{name: "spaces", raw: " a = 1 , b=2", want: map[string]string{"a": "1", "b": "2"}},
		{name: "invalid", raw: "novalue", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.raw))
		})
	}
}

func TestTreeMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	tm, err := observability.NewTreeMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tm.RecordPhase(ctx, "insert", "insert", 100, 20*time.Millisecond)
	tm.RecordPhase(ctx, "remove", "remove", 40, 10*time.Millisecond)
	tm.AddLiveNodes(ctx, 100)
	tm.AddLiveNodes(ctx, -40)
	tm.RecordFailure(ctx, "validate")
	tm.RecordHibernation(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	ops, ok := byName["rbmap.ops.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	total := int64(0)
	for _, point := range ops.DataPoints {
		total += point.Value
	}

	assert.Equal(t, int64(140), total)

	live, ok := byName["rbmap.nodes.live"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, live.DataPoints, 1)
	assert.Equal(t, int64(60), live.DataPoints[0].Value)

	assert.Contains(t, byName, "rbmap.phase.duration.seconds")
	assert.Contains(t, byName, "rbmap.check.failures.total")
	assert.Contains(t, byName, "rbmap.arena.hibernations.total")
}

func TestPrometheusProvider(t *testing.T) {
	t.Parallel()

	provider, handler, err := observability.PrometheusProvider()
	require.NoError(t, err)

	tm, err := observability.NewTreeMetrics(provider.Meter("test"))
	require.NoError(t, err)

	tm.RecordPhase(context.Background(), "insert", "insert", 7, time.Millisecond)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL) //nolint:noctx // test server
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rbmap_ops")
}
