package pricing

import (
	"context"
	"time"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockCatalogClient is a mock implementation of pricing.CatalogClient
type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) GetProductInfo(ctx context.Context, offerID string) (*pricing.ProductInfo, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.ProductInfo), args.Error(1)
}

func (m *MockCatalogClient) GetProductInfoBatch(ctx context.Context, offerIDs []string) ([]pricing.ProductInfo, error) {
	args := m.Called(ctx, offerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.ProductInfo), args.Error(1)
}

func (m *MockCatalogClient) GetCategoryTree(ctx context.Context) ([]pricing.CategoryNode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.CategoryNode), args.Error(1)
}

// MockKeyValueStore is a mock implementation of pricing.KeyValueStore
type MockKeyValueStore struct {
	mock.Mock
}

func (m *MockKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKeyValueStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// MockCommissionLookup is a mock implementation of CommissionLookup
type MockCommissionLookup struct {
	mock.Mock
}

func (m *MockCommissionLookup) GetCommission(ctx context.Context, categoryID int64) (pricing.CommissionEntry, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(pricing.CommissionEntry), args.Error(1)
}

func (m *MockCommissionLookup) GetTypeID(ctx context.Context, offerID string) (int64, error) {
	args := m.Called(ctx, offerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommissionLookup) RememberTypeID(ctx context.Context, offerID string, categoryID int64) error {
	args := m.Called(ctx, offerID, categoryID)
	return args.Error(0)
}

// MockMarginSolver is a mock implementation of MarginSolver
type MockMarginSolver struct {
	mock.Mock
}

func (m *MockMarginSolver) SolveQuote(in pricing.CostInputs, coeffs pricing.ObtainCoefficients) (pricing.MarginPercents, pricing.PriceQuote, error) {
	args := m.Called(in, coeffs)
	return args.Get(0).(pricing.MarginPercents), args.Get(1).(pricing.PriceQuote), args.Error(2)
}

// MockPriceFormula is a mock implementation of pricing.PriceFormula
type MockPriceFormula struct {
	mock.Mock
}

func (m *MockPriceFormula) CalculatePrice(in pricing.CostInputs, percents pricing.MarginPercents, coeffs pricing.ObtainCoefficients) (pricing.PriceQuote, error) {
	args := m.Called(in, percents, coeffs)
	return args.Get(0).(pricing.PriceQuote), args.Error(1)
}

func (m *MockPriceFormula) CalculatePay(in pricing.CostInputs, coeffs pricing.ObtainCoefficients, price decimal.Decimal) (pricing.Payout, error) {
	args := m.Called(in, coeffs, price)
	return args.Get(0).(pricing.Payout), args.Error(1)
}

// MockMetrics is a mock implementation of Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordBatch(ctx context.Context, priced int, skipped map[string]int, elapsed time.Duration, failed bool) {
	m.Called(ctx, priced, skipped, elapsed, failed)
}

func (m *MockMetrics) RecordScan(ctx context.Context, scanned, unprofitable int, totalLoss float64) {
	m.Called(ctx, scanned, unprofitable, totalLoss)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
