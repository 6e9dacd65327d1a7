package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// FaultPolicy decides what a price formula error does to a batch run
type FaultPolicy string

const (
	// FaultPolicySkipItem leaves the failing item unpriced and continues
	FaultPolicySkipItem FaultPolicy = "skip_item"
	// FaultPolicyAbortBatch stops the run at the first formula error
	FaultPolicyAbortBatch FaultPolicy = "abort_batch"
)

// IsValid returns true if the policy is known
func (p FaultPolicy) IsValid() bool {
	return p == FaultPolicySkipItem || p == FaultPolicyAbortBatch
}

// Reasons an item is left unpriced
const (
	SkipReasonNoCategory        = "no_category"
	SkipReasonNoCommission      = "no_commission"
	SkipReasonCommissionLookup  = "commission_lookup_failed"
	SkipReasonSolverCapExceeded = "solver_cap_exceeded"
	SkipReasonFormulaError      = "formula_error"
)

// CommissionLookup is the part of CommissionResolver the optimizer needs
type CommissionLookup interface {
	GetCommission(ctx context.Context, categoryID int64) (pricing.CommissionEntry, error)
	GetTypeID(ctx context.Context, offerID string) (int64, error)
	RememberTypeID(ctx context.Context, offerID string, categoryID int64) error
}

// MarginSolver produces the margin percents and the quote for one SKU
type MarginSolver interface {
	SolveQuote(in pricing.CostInputs, coeffs pricing.ObtainCoefficients) (pricing.MarginPercents, pricing.PriceQuote, error)
}

// Metrics receives the measurements of batch runs and scans
type Metrics interface {
	RecordBatch(ctx context.Context, priced int, skipped map[string]int, elapsed time.Duration, failed bool)
	RecordScan(ctx context.Context, scanned, unprofitable int, totalLoss float64)
}

var _ Metrics = (*telemetry.PricingMetrics)(nil)

type nopMetrics struct{}

func (nopMetrics) RecordBatch(context.Context, int, map[string]int, time.Duration, bool) {}
func (nopMetrics) RecordScan(context.Context, int, int, float64)                         {}

// SkippedItem records why an item was left unpriced
type SkippedItem struct {
	OfferID string `json:"offer_id"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

// OptimizeResult summarises a batch run
type OptimizeResult struct {
	BatchID string        `json:"batch_id"`
	Total   int           `json:"total"`
	Priced  int           `json:"priced"`
	Skipped []SkippedItem `json:"skipped"`
}

// BatchPriceOptimizer prices every item of a batch in place, one item at a time
type BatchPriceOptimizer struct {
	commissions CommissionLookup
	selector    pricing.ChannelSelector
	tariffs     *pricing.LogisticsTariffTable
	solver      MarginSolver
	catalog     pricing.CatalogClient
	coeffs      pricing.ObtainCoefficients
	faultPolicy FaultPolicy
	metrics     Metrics
	logger      *zap.Logger
}

// OptimizerOption is a functional option for configuring the optimizer
type OptimizerOption func(*BatchPriceOptimizer)

// WithCatalog enables Enrich
func WithCatalog(catalog pricing.CatalogClient) OptimizerOption {
	return func(o *BatchPriceOptimizer) {
		o.catalog = catalog
	}
}

// WithFaultPolicy sets the formula error policy (default skip_item)
func WithFaultPolicy(policy FaultPolicy) OptimizerOption {
	return func(o *BatchPriceOptimizer) {
		if policy.IsValid() {
			o.faultPolicy = policy
		}
	}
}

// WithOptimizerLogger sets the logger
func WithOptimizerLogger(l *zap.Logger) OptimizerOption {
	return func(o *BatchPriceOptimizer) {
		o.logger = l
	}
}

// WithOptimizerMetrics sets the metrics sink
func WithOptimizerMetrics(m Metrics) OptimizerOption {
	return func(o *BatchPriceOptimizer) {
		if m != nil {
			o.metrics = m
		}
	}
}

// NewBatchPriceOptimizer creates an optimizer
func NewBatchPriceOptimizer(
	commissions CommissionLookup,
	selector pricing.ChannelSelector,
	tariffs *pricing.LogisticsTariffTable,
	solver MarginSolver,
	coeffs pricing.ObtainCoefficients,
	opts ...OptimizerOption,
) *BatchPriceOptimizer {
	o := &BatchPriceOptimizer{
		commissions: commissions,
		selector:    selector,
		tariffs:     tariffs,
		solver:      solver,
		coeffs:      coeffs,
		faultPolicy: FaultPolicySkipItem,
		metrics:     nopMetrics{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize prices every item of the batch. Items without a category or a
// cached commission are left untouched. Under FaultPolicyAbortBatch a formula
// error stops the run and is returned with the partial result.
func (o *BatchPriceOptimizer) Optimize(ctx context.Context, batch *pricing.Batch) (*OptimizeResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "pricing.optimize",
		telemetry.AttrBatchID.String(batch.ID.String()),
		telemetry.AttrItemCount.Int(len(batch.Items)),
	)
	defer span.End()
	ctx = logger.WithBatchID(logger.WithContext(ctx, o.logger), batch.ID.String())

	started := time.Now()
	result := &OptimizeResult{
		BatchID: batch.ID.String(),
		Total:   len(batch.Items),
		Skipped: make([]SkippedItem, 0),
	}

	for _, item := range batch.Items {
		skip, err := o.optimizeItem(ctx, item)
		if err != nil {
			telemetry.FailSpan(span, err)
			o.metrics.RecordBatch(ctx, result.Priced, result.skipCounts(), time.Since(started), true)
			return result, err
		}
		if skip != nil {
			span.AddEvent(telemetry.EventItemSkipped, trace.WithAttributes(
				telemetry.AttrOfferID.String(skip.OfferID),
				telemetry.AttrSkipReason.String(skip.Reason),
			))
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		result.Priced++
	}

	span.SetAttributes(telemetry.AttrPriced.Int(result.Priced), telemetry.AttrSkipped.Int(len(result.Skipped)))
	o.metrics.RecordBatch(ctx, result.Priced, result.skipCounts(), time.Since(started), false)

	logger.FromContext(ctx).Info("batch optimized",
		zap.Int("total", result.Total),
		zap.Int("priced", result.Priced),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (o *BatchPriceOptimizer) optimizeItem(ctx context.Context, item *pricing.PricedItem) (*SkippedItem, error) {
	log := logger.ForOffer(ctx, item.OfferID)

	skip := func(reason string, err error) *SkippedItem {
		s := &SkippedItem{OfferID: item.OfferID, Reason: reason}
		if err != nil {
			s.Detail = err.Error()
		}
		log.Info("item skipped", zap.String("reason", reason), zap.Error(err))
		return s
	}

	if item.CategoryID == 0 {
		return skip(SkipReasonNoCategory, nil), nil
	}

	entry, err := o.commissions.GetCommission(ctx, item.CategoryID)
	if errors.Is(err, pricing.ErrCommissionNotFound) {
		return skip(SkipReasonNoCommission, nil), nil
	}
	if err != nil {
		log.Error("commission lookup failed", zap.Error(err))
		return skip(SkipReasonCommissionLookup, err), nil
	}

	channel := o.selector.SelectChannel(pricing.ChannelInput{
		FBOStock:      item.FBOStock,
		FBSStock:      item.FBSStock,
		FBOCommission: entry.FBO,
		FBSCommission: entry.FBS,
	})
	commission := entry.For(channel).Mul(hundred)
	fee := o.tariffs.Lookup(item.VolumeWeight)

	in := item.CostInputs()
	in.SalesCommission = commission
	in.LogisticsFee = fee

	percents, quote, err := o.solver.SolveQuote(in, o.coeffs)
	if err != nil {
		var capErr *pricing.StageCapError
		if errors.As(err, &capErr) {
			log.Warn("solver stage cap exceeded",
				zap.String("stage", string(capErr.Stage)),
				zap.Int("iterations", capErr.Iterations),
			)
			return skip(SkipReasonSolverCapExceeded, err), nil
		}
		if o.faultPolicy == FaultPolicyAbortBatch {
			log.Error("formula error, aborting batch", zap.Error(err))
			return nil, fmt.Errorf("pricing %s: %w", item.OfferID, err)
		}
		return skip(SkipReasonFormulaError, err), nil
	}

	item.Percents = &percents
	item.SalesCommission = commission
	item.LogisticsFee = fee
	item.Quote = &quote

	log.Debug("item priced",
		zap.String("channel", channel.String()),
		zap.String("min_price", quote.MinPrice.String()),
		zap.String("price", quote.Price.String()),
		zap.String("old_price", quote.OldPrice.String()),
	)
	return nil, nil
}

func (r *OptimizeResult) skipCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range r.Skipped {
		counts[s.Reason]++
	}
	return counts
}

// Enrich fills category ids, stocks and volumetric weights from the catalog.
// Items the catalog batch lookup misses keep their data, but a missing
// category is still resolved through the cached SKU category ids.
func (o *BatchPriceOptimizer) Enrich(ctx context.Context, batch *pricing.Batch) (int, error) {
	if o.catalog == nil || len(batch.Items) == 0 {
		return 0, nil
	}
	ctx, span := telemetry.StartSpan(ctx, "pricing.enrich", telemetry.AttrBatchID.String(batch.ID.String()))
	defer span.End()
	ctx = logger.WithBatchID(logger.WithContext(ctx, o.logger), batch.ID.String())

	infos, err := o.catalog.GetProductInfoBatch(ctx, batch.OfferIDs())
	if err != nil {
		telemetry.FailSpan(span, err)
		return 0, fmt.Errorf("catalog lookup: %w", err)
	}
	byOffer := make(map[string]pricing.ProductInfo, len(infos))
	for _, info := range infos {
		byOffer[info.OfferID] = info
	}

	enriched := 0
	for _, item := range batch.Items {
		if info, ok := byOffer[item.OfferID]; ok {
			item.ApplyProductInfo(info)
			enriched++
			if info.CategoryID != 0 {
				if err := o.commissions.RememberTypeID(ctx, item.OfferID, info.CategoryID); err != nil {
					logger.ForOffer(ctx, item.OfferID).Warn("failed to cache type id", zap.Error(err))
				}
			}
		}
		if item.CategoryID != 0 {
			continue
		}
		id, err := o.commissions.GetTypeID(ctx, item.OfferID)
		if err != nil {
			if !errors.Is(err, pricing.ErrCategoryNotFound) {
				logger.ForOffer(ctx, item.OfferID).Warn("type id lookup failed", zap.Error(err))
			}
			continue
		}
		item.CategoryID = id
	}

	span.SetAttributes(telemetry.AttrEnriched.Int(enriched))
	return enriched, nil
}
