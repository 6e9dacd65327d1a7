package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestPricingMetrics(t *testing.T) (*PricingMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewPricingMetrics(provider.Meter(MeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key attribute.Key) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)

	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestNewPricingMetrics(t *testing.T) {
	m, err := NewPricingMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, m)

	m, err = NewPricingMetrics(nil)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "NewPricingMetrics: meter cannot be nil", err.Error())
}

func TestPricingMetrics_RecordBatch(t *testing.T) {
	m, reader := newTestPricingMetrics(t)
	ctx := context.Background()

	m.RecordBatch(ctx, 3, map[string]int{"no_category": 2, "no_commission": 1, "formula_error": 0}, 20*time.Millisecond, false)
	m.RecordBatch(ctx, 0, nil, time.Millisecond, true)

	metrics := collect(t, reader)

	priced := metrics["pricing_items_priced_total"].Data.(metricdata.Sum[int64])
	require.Len(t, priced.DataPoints, 1)
	assert.Equal(t, int64(3), priced.DataPoints[0].Value)

	skipped := sumByAttr(t, metrics["pricing_items_skipped_total"], AttrSkipReason)
	assert.Equal(t, map[string]int64{"no_category": 2, "no_commission": 1}, skipped)

	batches := sumByAttr(t, metrics["pricing_batches_total"], AttrOutcome)
	assert.Equal(t, map[string]int64{"ok": 1, "aborted": 1}, batches)

	hist, ok := metrics["pricing_batch_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		assert.Equal(t, batchDurationBuckets, dp.Bounds)
	}
	assert.Equal(t, uint64(2), count)
}

func TestPricingMetrics_RecordScan(t *testing.T) {
	m, reader := newTestPricingMetrics(t)
	ctx := context.Background()

	m.RecordScan(ctx, 4, 2, 70)
	m.RecordScan(ctx, 1, 0, 0)

	metrics := collect(t, reader)

	scanned := metrics["pricing_items_scanned_total"].Data.(metricdata.Sum[int64])
	require.Len(t, scanned.DataPoints, 1)
	assert.Equal(t, int64(5), scanned.DataPoints[0].Value)

	unprofitable := metrics["pricing_unprofitable_items_total"].Data.(metricdata.Sum[int64])
	require.Len(t, unprofitable.DataPoints, 1)
	assert.Equal(t, int64(2), unprofitable.DataPoints[0].Value)

	loss := metrics["pricing_scan_loss_total"].Data.(metricdata.Sum[float64])
	require.Len(t, loss.DataPoints, 1)
	assert.InDelta(t, 70.0, loss.DataPoints[0].Value, 1e-9)
}
