package pricing

import (
	"context"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnprofitableItem is a SKU that loses money at its current price
type UnprofitableItem struct {
	OfferID      string          `json:"offer_id"`
	Name         string          `json:"name"`
	IncomingCost decimal.Decimal `json:"incoming_cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Loss         decimal.Decimal `json:"loss"`
}

// ScanReport lists the unprofitable items of a scan. Scanned counts only items
// with a cost basis; TotalLoss sums the reported losses.
type ScanReport struct {
	Items     []UnprofitableItem `json:"items"`
	Scanned   int                `json:"scanned"`
	Failed    int                `json:"failed"`
	TotalLoss decimal.Decimal    `json:"total_loss"`
}

// UnprofitabilityScanner flags priced items whose payout at the current price
// does not cover their cost
type UnprofitabilityScanner struct {
	formula pricing.PriceFormula
	coeffs  pricing.ObtainCoefficients
	metrics Metrics
	logger  *zap.Logger
}

// NewUnprofitabilityScanner creates a scanner
func NewUnprofitabilityScanner(formula pricing.PriceFormula, coeffs pricing.ObtainCoefficients, l *zap.Logger) *UnprofitabilityScanner {
	if l == nil {
		l = zap.NewNop()
	}
	return &UnprofitabilityScanner{
		formula: formula,
		coeffs:  coeffs,
		metrics: nopMetrics{},
		logger:  l,
	}
}

// WithMetrics sets the metrics sink
func (s *UnprofitabilityScanner) WithMetrics(m Metrics) *UnprofitabilityScanner {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Scan checks every item with a positive effective cost. Items the formula
// cannot price are counted as failed and left out of the report.
func (s *UnprofitabilityScanner) Scan(ctx context.Context, items []*pricing.PricedItem) *ScanReport {
	ctx, span := telemetry.StartSpan(ctx, "pricing.scan", telemetry.AttrItemCount.Int(len(items)))
	defer span.End()
	ctx = logger.WithContext(ctx, s.logger)
	report := &ScanReport{
		Items:     make([]UnprofitableItem, 0),
		TotalLoss: decimal.Zero,
	}

	for _, item := range items {
		cost := item.EffectiveCost()
		if !cost.IsPositive() {
			continue
		}

		pay, err := s.formula.CalculatePay(item.CostInputs(), s.coeffs, item.Price)
		if err != nil {
			logger.ForOffer(ctx, item.OfferID).Warn("cannot assess profitability", zap.Error(err))
			report.Failed++
			continue
		}
		report.Scanned++

		profit := pay.Profit(cost)
		if !profit.IsNegative() {
			continue
		}

		loss := profit.Abs()
		report.Items = append(report.Items, UnprofitableItem{
			OfferID:      item.OfferID,
			Name:         item.Name,
			IncomingCost: cost,
			SellingPrice: item.Price,
			Loss:         loss,
		})
		report.TotalLoss = report.TotalLoss.Add(loss)
	}

	loss, _ := report.TotalLoss.Float64()
	s.metrics.RecordScan(ctx, report.Scanned, len(report.Items), loss)
	span.SetAttributes(telemetry.AttrUnprofitable.Int(len(report.Items)), telemetry.AttrFailed.Int(report.Failed))

	if len(report.Items) > 0 {
		s.logger.Info("unprofitable items found",
			zap.Int("count", len(report.Items)),
			zap.String("total_loss", report.TotalLoss.String()),
		)
	}
	return report
}
