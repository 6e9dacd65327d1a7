package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrSkipReason = attribute.Key("skip_reason")
	AttrOutcome    = attribute.Key("outcome")
)

// batchDurationBuckets covers single-item runs up to multi-thousand batches (seconds)
var batchDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// PricingMetrics holds the instruments of batch pricing and the profitability scan
type PricingMetrics struct {
	itemsPriced       metric.Int64Counter
	itemsSkipped      metric.Int64Counter
	batchDuration     metric.Float64Histogram
	batches           metric.Int64Counter
	itemsScanned      metric.Int64Counter
	unprofitableItems metric.Int64Counter
	scanLoss          metric.Float64Counter
}

// NewPricingMetrics registers the pricing instruments on meter
func NewPricingMetrics(meter metric.Meter) (*PricingMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewPricingMetrics: meter cannot be nil")
	}

	m := &PricingMetrics{}
	var err error

	if m.itemsPriced, err = meter.Int64Counter("pricing_items_priced_total",
		metric.WithDescription("Items that received a price quote"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, err
	}
	if m.itemsSkipped, err = meter.Int64Counter("pricing_items_skipped_total",
		metric.WithDescription("Items left unpriced, by reason"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, err
	}
	if m.batchDuration, err = meter.Float64Histogram("pricing_batch_duration_seconds",
		metric.WithDescription("Wall time of a batch optimization"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(batchDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if m.batches, err = meter.Int64Counter("pricing_batches_total",
		metric.WithDescription("Batch optimizations, by outcome"),
		metric.WithUnit("{batch}"),
	); err != nil {
		return nil, err
	}
	if m.itemsScanned, err = meter.Int64Counter("pricing_items_scanned_total",
		metric.WithDescription("Items assessed by the profitability scan"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, err
	}
	if m.unprofitableItems, err = meter.Int64Counter("pricing_unprofitable_items_total",
		metric.WithDescription("Items found selling below cost"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, err
	}
	if m.scanLoss, err = meter.Float64Counter("pricing_scan_loss_total",
		metric.WithDescription("Summed loss of unprofitable items"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordBatch records a finished batch run. skipped maps skip reasons to counts.
func (m *PricingMetrics) RecordBatch(ctx context.Context, priced int, skipped map[string]int, elapsed time.Duration, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "aborted"
	}
	m.batches.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
	m.batchDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(AttrOutcome.String(outcome)))
	if priced > 0 {
		m.itemsPriced.Add(ctx, int64(priced))
	}
	for reason, n := range skipped {
		if n > 0 {
			m.itemsSkipped.Add(ctx, int64(n), metric.WithAttributes(AttrSkipReason.String(reason)))
		}
	}
}

// RecordScan records a profitability scan
func (m *PricingMetrics) RecordScan(ctx context.Context, scanned, unprofitable int, totalLoss float64) {
	if scanned > 0 {
		m.itemsScanned.Add(ctx, int64(scanned))
	}
	if unprofitable > 0 {
		m.unprofitableItems.Add(ctx, int64(unprofitable))
		m.scanLoss.Add(ctx, totalLoss)
	}
}
