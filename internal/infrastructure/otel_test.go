package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
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
	require.True(t, ok, "aggregation is %T", agg)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestBusinessMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := CreateBusinessMetrics(mp.Meter(MeterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordFetch(ctx, "spreads", 40*time.Millisecond, nil)
	m.RecordFetch(ctx, "spreads", 10*time.Millisecond, errors.New("boom"))
	m.RecordAlignment(ctx, "futures-spreads", 120, 2)
	m.RecordAlignment(ctx, "futures-spreads", 80, 0)
	m.RecordStale(ctx, "futures-spreads")
	m.RecordPreferenceOp(ctx, "set", nil)
	m.RecordRefresh(ctx, "terminal-inventories", nil)
	m.RecordWebSocketClients(ctx, 1)
	m.RecordHTTPRequest(ctx, "GET", "/api/views", 200, time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["upstream_fetches_total"]))
	assert.Equal(t, int64(2), sumOf(t, data["series_alignments_total"]))
	assert.Equal(t, int64(2), sumOf(t, data["series_parse_failures_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["fetch_stale_responses_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["preference_operations_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["refresh_runs_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["websocket_clients"]))
	assert.Equal(t, int64(1), sumOf(t, data["http_requests_total"]))

	hist, ok := data["upstream_fetch_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestBusinessMetrics_NilIsNoop(t *testing.T) {
	var m *BusinessMetrics
	assert.NotPanics(t, func() {
		ctx := context.Background()
		m.RecordFetch(ctx, "x", time.Second, nil)
		m.RecordAlignment(ctx, "x", 1, 1)
		m.RecordStale(ctx, "x")
		m.RecordPreferenceOp(ctx, "get", nil)
		m.RecordRefresh(ctx, "x", nil)
		m.RecordWebSocketClients(ctx, -1)
		m.RecordHTTPRequest(ctx, "GET", "/", 200, 0)
	})
}

func TestInitializeOTel_NoExporters(t *testing.T) {
	logger, _ := newDiscardLogger()
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "petrodash-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}, logger)
	require.NoError(t, err)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Tracer)
	assert.Nil(t, providers.PrometheusHTTP)
	require.NoError(t, providers.Shutdown(context.Background()))

	_, err = InitializeOTel(&OTelConfig{TraceExporter: "jaeger"}, logger)
	assert.Error(t, err)
}

func TestCollectSystemStats(t *testing.T) {
	stats := CollectSystemStats(time.Now().Add(-time.Minute))
	assert.Positive(t, stats.GoRoutines)
	assert.Positive(t, stats.CPUCount)
	assert.GreaterOrEqual(t, stats.ProcessUptime, time.Minute)

	formatted := stats.FormatStats()
	assert.Contains(t, formatted, "heap_alloc_mb")
	assert.EqualValues(t, 60, formatted["uptime_seconds"])
}
