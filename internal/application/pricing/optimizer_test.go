package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/infrastructure/cache"
	"github.com/erp/marketsync/internal/infrastructure/strategy/channel"
	"github.com/erp/marketsync/internal/infrastructure/strategy/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testCoeffs() pricing.ObtainCoefficients {
	return pricing.ObtainCoefficients{
		DeliveryToBasePercent: d("5.5"),
		AcquiringPercent:      d("1.5"),
		HandlingFee:           d("20"),
		TaxUnit:               d("6"),
		MinDeliveryFee:        d("20"),
		LabelFee:              d("5"),
	}
}

var (
	sampleQuote    = pricing.PriceQuote{MinPrice: d("300"), Price: d("400"), OldPrice: d("600")}
	samplePercents = pricing.MarginPercents{Floor: 35, Normal: 70, Was: 140}
)

func newOptimizer(lookup CommissionLookup, solver MarginSolver, opts ...OptimizerOption) *BatchPriceOptimizer {
	return NewBatchPriceOptimizer(
		lookup,
		channel.NewHigherStockSelector(),
		pricing.DefaultLogisticsTariffTable(),
		solver,
		testCoeffs(),
		opts...,
	)
}

func TestBatchPriceOptimizer_Optimize(t *testing.T) {
	lookup := new(MockCommissionLookup)
	lookup.On("GetCommission", mock.Anything, int64(123)).
		Return(pricing.CommissionEntry{FBO: d("0.2"), FBS: d("0.2")}, nil)

	solver := new(MockMarginSolver)
	solver.On("SolveQuote", mock.MatchedBy(func(in pricing.CostInputs) bool {
		return in.OfferID == "SKU-1" &&
			in.SalesCommission.Equal(d("20")) &&
			in.LogisticsFee.Equal(d("19.32")) &&
			in.EffectiveCost().Equal(d("100"))
	}), testCoeffs()).Return(samplePercents, sampleQuote, nil).Once()

	uncategorized := &pricing.PricedItem{OfferID: "SKU-0", IncomingPrice: d("50")}
	item := &pricing.PricedItem{
		OfferID:       "SKU-1",
		IncomingPrice: d("100"),
		CategoryID:    123,
		FBOStock:      10,
		FBSStock:      5,
		VolumeWeight:  d("0.3"),
	}
	batch := pricing.NewBatch([]*pricing.PricedItem{uncategorized, item})

	result, err := newOptimizer(lookup, solver).Optimize(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Priced)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, SkippedItem{OfferID: "SKU-0", Reason: SkipReasonNoCategory}, result.Skipped[0])

	assert.True(t, item.SalesCommission.Equal(d("20")))
	assert.True(t, item.LogisticsFee.Equal(d("19.32")))
	assert.Equal(t, &samplePercents, item.Percents)
	assert.Equal(t, &sampleQuote, item.Quote)

	assert.Equal(t, &pricing.PricedItem{OfferID: "SKU-0", IncomingPrice: d("50")}, uncategorized)
	solver.AssertExpectations(t)
	lookup.AssertNumberOfCalls(t, "GetCommission", 1)
}

func TestBatchPriceOptimizer_ChannelDecidesCommission(t *testing.T) {
	lookup := new(MockCommissionLookup)
	lookup.On("GetCommission", mock.Anything, int64(7)).
		Return(pricing.CommissionEntry{FBO: d("0.1"), FBS: d("0.3")}, nil)

	solver := new(MockMarginSolver)
	solver.On("SolveQuote", mock.Anything, mock.Anything).Return(samplePercents, sampleQuote, nil)

	fbsHeavy := &pricing.PricedItem{OfferID: "A", IncomingPrice: d("10"), CategoryID: 7, FBOStock: 1, FBSStock: 9}
	fboHeavy := &pricing.PricedItem{OfferID: "B", IncomingPrice: d("10"), CategoryID: 7, FBOStock: 9, FBSStock: 1}

	_, err := newOptimizer(lookup, solver).Optimize(context.Background(), pricing.NewBatch([]*pricing.PricedItem{fbsHeavy, fboHeavy}))
	require.NoError(t, err)

	assert.True(t, fbsHeavy.SalesCommission.Equal(d("30")))
	assert.True(t, fboHeavy.SalesCommission.Equal(d("10")))
}

func TestBatchPriceOptimizer_Skips(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	lookup := new(MockCommissionLookup)
	lookup.On("GetCommission", mock.Anything, int64(1)).Return(pricing.CommissionEntry{}, pricing.ErrCommissionNotFound)
	lookup.On("GetCommission", mock.Anything, int64(2)).Return(pricing.CommissionEntry{}, errors.New("redis down"))
	lookup.On("GetCommission", mock.Anything, int64(3)).Return(pricing.CommissionEntry{FBO: d("0.1"), FBS: d("0.1")}, nil)
	lookup.On("GetCommission", mock.Anything, int64(4)).Return(pricing.CommissionEntry{FBO: d("0.1"), FBS: d("0.1")}, nil)

	solver := new(MockMarginSolver)
	solver.On("SolveQuote", mock.MatchedBy(func(in pricing.CostInputs) bool { return in.OfferID == "capped" }), mock.Anything).
		Return(pricing.MarginPercents{}, pricing.PriceQuote{}, &pricing.StageCapError{Stage: pricing.StageRetailGap, Iterations: 100})
	solver.On("SolveQuote", mock.MatchedBy(func(in pricing.CostInputs) bool { return in.OfferID == "ok" }), mock.Anything).
		Return(samplePercents, sampleQuote, nil)

	items := []*pricing.PricedItem{
		{OfferID: "no-commission", CategoryID: 1},
		{OfferID: "lookup-failed", CategoryID: 2},
		{OfferID: "capped", CategoryID: 3},
		{OfferID: "ok", CategoryID: 4},
	}

	result, err := newOptimizer(lookup, solver, WithOptimizerLogger(zap.New(core))).
		Optimize(context.Background(), pricing.NewBatch(items))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Priced)
	reasons := make([]string, 0, len(result.Skipped))
	for _, s := range result.Skipped {
		reasons = append(reasons, s.Reason)
	}
	assert.Equal(t, []string{SkipReasonNoCommission, SkipReasonCommissionLookup, SkipReasonSolverCapExceeded}, reasons)

	assert.Nil(t, items[2].Quote)
	assert.True(t, items[2].SalesCommission.IsZero(), "failed items stay untouched")
	assert.NotNil(t, items[3].Quote)

	capLogs := recorded.FilterMessage("solver stage cap exceeded").All()
	require.Len(t, capLogs, 1)
	assert.Equal(t, "retail_gap", capLogs[0].ContextMap()["stage"])
	assert.Equal(t, "capped", capLogs[0].ContextMap()["offer_id"])
	assert.Equal(t, result.BatchID, capLogs[0].ContextMap()["batch_id"])
}

func TestBatchPriceOptimizer_FaultPolicy(t *testing.T) {
	newFixture := func() (*MockCommissionLookup, *MockMarginSolver, []*pricing.PricedItem) {
		lookup := new(MockCommissionLookup)
		lookup.On("GetCommission", mock.Anything, mock.Anything).Return(pricing.CommissionEntry{FBO: d("0.1"), FBS: d("0.1")}, nil)

		solver := new(MockMarginSolver)
		solver.On("SolveQuote", mock.MatchedBy(func(in pricing.CostInputs) bool { return in.OfferID == "bad" }), mock.Anything).
			Return(pricing.MarginPercents{}, pricing.PriceQuote{}, pricing.ErrInvalidFormulaInput)
		solver.On("SolveQuote", mock.MatchedBy(func(in pricing.CostInputs) bool { return in.OfferID == "good" }), mock.Anything).
			Return(samplePercents, sampleQuote, nil)

		items := []*pricing.PricedItem{
			{OfferID: "bad", CategoryID: 1},
			{OfferID: "good", CategoryID: 1},
		}
		return lookup, solver, items
	}

	t.Run("skip item is the default", func(t *testing.T) {
		lookup, solver, items := newFixture()
		metrics := new(MockMetrics)
		metrics.On("RecordBatch", mock.Anything, 1, map[string]int{SkipReasonFormulaError: 1}, mock.Anything, false).Once()

		result, err := newOptimizer(lookup, solver, WithOptimizerMetrics(metrics)).
			Optimize(context.Background(), pricing.NewBatch(items))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Priced)
		assert.Equal(t, SkipReasonFormulaError, result.Skipped[0].Reason)
		assert.NotNil(t, items[1].Quote)
		metrics.AssertExpectations(t)
	})

	t.Run("abort batch stops at the failing item", func(t *testing.T) {
		lookup, solver, items := newFixture()
		metrics := new(MockMetrics)
		metrics.On("RecordBatch", mock.Anything, 0, map[string]int{}, mock.Anything, true).Once()

		result, err := newOptimizer(lookup, solver, WithFaultPolicy(FaultPolicyAbortBatch), WithOptimizerMetrics(metrics)).
			Optimize(context.Background(), pricing.NewBatch(items))
		require.ErrorIs(t, err, pricing.ErrInvalidFormulaInput)
		assert.Contains(t, err.Error(), "bad")
		assert.Equal(t, 0, result.Priced)
		assert.Nil(t, items[1].Quote)
		metrics.AssertExpectations(t)
	})

	t.Run("cap errors skip even when aborting", func(t *testing.T) {
		lookup := new(MockCommissionLookup)
		lookup.On("GetCommission", mock.Anything, mock.Anything).Return(pricing.CommissionEntry{}, nil)
		solver := new(MockMarginSolver)
		solver.On("SolveQuote", mock.Anything, mock.Anything).
			Return(pricing.MarginPercents{}, pricing.PriceQuote{}, &pricing.StageCapError{Stage: pricing.StageWasGap})

		result, err := newOptimizer(lookup, solver, WithFaultPolicy(FaultPolicyAbortBatch)).
			Optimize(context.Background(), pricing.NewBatch([]*pricing.PricedItem{{OfferID: "x", CategoryID: 1}}))
		require.NoError(t, err)
		assert.Equal(t, SkipReasonSolverCapExceeded, result.Skipped[0].Reason)
	})
}

func TestBatchPriceOptimizer_Idempotent(t *testing.T) {
	ctx := context.Background()
	resolver := NewCommissionResolver(cache.NewMemoryStore(), nil, nil)
	require.NoError(t, resolver.SetCommission(ctx, 123, pricing.CommissionEntry{FBO: d("0.15"), FBS: d("0.2")}))

	f := formula.NewMarketplaceFormula()
	solver := pricing.NewMarginTieringSolver(f, pricing.NewInitialPercentEstimator(pricing.DefaultSeedCurve()), pricing.DefaultSolverConfig())
	optimizer := newOptimizer(resolver, solver)

	batch := pricing.NewBatch([]*pricing.PricedItem{
		{OfferID: "SKU-1", IncomingPrice: d("349.90"), CategoryID: 123, FBOStock: 3, FBSStock: 8, VolumeWeight: d("1.2")},
		{OfferID: "SKU-2", IncomingPrice: d("12"), AvailablePrice: d("9.5"), CategoryID: 123, VolumeWeight: d("0")},
	})

	_, err := optimizer.Optimize(ctx, batch)
	require.NoError(t, err)
	first := make([]pricing.PricedItem, len(batch.Items))
	for i, item := range batch.Items {
		require.NotNil(t, item.Quote, item.OfferID)
		first[i] = *item
	}

	_, err = optimizer.Optimize(ctx, batch)
	require.NoError(t, err)
	for i, item := range batch.Items {
		assert.Equal(t, *first[i].Percents, *item.Percents)
		assert.True(t, first[i].Quote.MinPrice.Equal(item.Quote.MinPrice))
		assert.True(t, first[i].Quote.Price.Equal(item.Quote.Price))
		assert.True(t, first[i].Quote.OldPrice.Equal(item.Quote.OldPrice))
	}

	// fbs holds more stock, so its 20% commission applies
	assert.True(t, batch.Items[0].SalesCommission.Equal(d("20")))
	assert.True(t, batch.Items[0].LogisticsFee.Equal(d("29.52")))
}

func TestBatchPriceOptimizer_Enrich(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "type_id:SKU-3", "77"))

	catalog := new(MockCatalogClient)
	catalog.On("GetProductInfoBatch", mock.Anything, []string{"SKU-1", "SKU-2", "SKU-3"}).Return([]pricing.ProductInfo{
		{OfferID: "SKU-1", Name: "Kettle", CategoryID: 123, FBOStock: 10, FBSStock: 5, VolumeWeight: d("0.3")},
	}, nil)
	catalog.On("GetProductInfo", mock.Anything, "SKU-2").Return(nil, pricing.ErrProductNotFound)

	resolver := NewCommissionResolver(store, catalog, nil)
	optimizer := newOptimizer(resolver, new(MockMarginSolver), WithCatalog(catalog))

	batch := pricing.NewBatch([]*pricing.PricedItem{
		{OfferID: "SKU-1"},
		{OfferID: "SKU-2", FBSStock: 4},
		{OfferID: "SKU-3"},
	})

	enriched, err := optimizer.Enrich(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, enriched)

	assert.Equal(t, int64(123), batch.Items[0].CategoryID)
	assert.Equal(t, "Kettle", batch.Items[0].Name)
	assert.Equal(t, int64(10), batch.Items[0].FBOStock)

	assert.Equal(t, int64(0), batch.Items[1].CategoryID)
	assert.Equal(t, int64(4), batch.Items[1].FBSStock, "unknown items keep their data")

	assert.Equal(t, int64(77), batch.Items[2].CategoryID, "resolved through the type id cache")

	cached, found, _ := store.Get(ctx, "type_id:SKU-1")
	assert.True(t, found)
	assert.Equal(t, "123", cached)
}

func TestBatchPriceOptimizer_EnrichWithoutCatalog(t *testing.T) {
	optimizer := newOptimizer(new(MockCommissionLookup), new(MockMarginSolver))

	enriched, err := optimizer.Enrich(context.Background(), pricing.NewBatch([]*pricing.PricedItem{{OfferID: "x"}}))
	require.NoError(t, err)
	assert.Equal(t, 0, enriched)
}

func TestBatchPriceOptimizer_EnrichCatalogFailure(t *testing.T) {
	catalog := new(MockCatalogClient)
	catalog.On("GetProductInfoBatch", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

	optimizer := newOptimizer(new(MockCommissionLookup), new(MockMarginSolver), WithCatalog(catalog))

	_, err := optimizer.Enrich(context.Background(), pricing.NewBatch([]*pricing.PricedItem{{OfferID: "x"}}))
	require.Error(t, err)
}
