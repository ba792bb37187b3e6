package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsRecordTurnsAndBackendCalls(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.TurnCompleted(ctx, "ok", 120*time.Millisecond)
	m.TurnCompleted(ctx, "degraded", 80*time.Millisecond)
	m.ParseFailed(ctx)
	m.BackendCall(ctx, "openai", "ok", 100*time.Millisecond, 40, 12)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["rpg_turns_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["rpg_parse_failures_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["rpg_backend_calls_total"]))
	assert.Equal(t, int64(52), sumOf(t, got["rpg_backend_tokens_total"]))
	assert.Contains(t, got, "rpg_turn_duration_seconds")
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	assert.NotPanics(t, func() {
		m.TurnCompleted(context.Background(), "failed", time.Second)
		m.BackendCall(context.Background(), "local", "error", time.Second, 0, 0)
	})
}
