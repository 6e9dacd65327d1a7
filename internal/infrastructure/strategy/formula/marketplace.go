package formula

import (
	"fmt"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// MarketplaceFormula prices a SKU from its full cost stack.
//
// Payout for a selling price P:
//
//	payout = P - P*(commission + acquiring + tax + advertising)/100
//	           - max(P*delivery_to_base/100, min_delivery_fee)
//	           - logistics - packaging - handling - label
//
// CalculatePrice returns, per tier, the smallest whole-unit price whose profit
// (payout minus cost) reaches base*percent/100, where base is the cost plus all
// flat fees. Payout is strictly increasing in P, so each price point is
// non-decreasing in its percent.
type MarketplaceFormula struct {
	strategy.Descriptor
}

// NewMarketplaceFormula creates the formula
func NewMarketplaceFormula() *MarketplaceFormula {
	return &MarketplaceFormula{
		Descriptor: strategy.Describe(
			strategy.KindPriceFormula,
			"marketplace",
			"Marketplace payout model with commission, acquiring, tax, advertising and delivery deductions",
		),
	}
}

type deductions struct {
	variableRate  decimal.Decimal // fraction of price
	deliveryRate  decimal.Decimal // fraction of price, floored by minDelivery
	minDelivery   decimal.Decimal
	flatFees      decimal.Decimal
	effectiveCost decimal.Decimal
}

func (f *MarketplaceFormula) deductionsFor(in pricing.CostInputs, coeffs pricing.ObtainCoefficients) (deductions, error) {
	cost := in.EffectiveCost()
	if cost.IsNegative() {
		return deductions{}, fmt.Errorf("%w: negative cost %s for %s", pricing.ErrInvalidFormulaInput, cost, in.OfferID)
	}
	fees := []struct {
		name  string
		value decimal.Decimal
	}{
		{"logistics fee", in.LogisticsFee},
		{"packaging cost", in.PackagingCost},
		{"handling fee", coeffs.HandlingFee},
		{"label fee", coeffs.LabelFee},
		{"min delivery fee", coeffs.MinDeliveryFee},
	}
	for _, fee := range fees {
		if fee.value.IsNegative() {
			return deductions{}, fmt.Errorf("%w: negative %s for %s", pricing.ErrInvalidFormulaInput, fee.name, in.OfferID)
		}
	}

	d := deductions{
		variableRate: in.SalesCommission.
			Add(coeffs.AcquiringPercent).
			Add(coeffs.TaxUnit).
			Add(in.AdvertisingPercent).
			Div(hundred),
		deliveryRate:  coeffs.DeliveryToBasePercent.Div(hundred),
		minDelivery:   coeffs.MinDeliveryFee,
		flatFees:      in.LogisticsFee.Add(in.PackagingCost).Add(coeffs.HandlingFee).Add(coeffs.LabelFee),
		effectiveCost: cost,
	}
	if d.variableRate.IsNegative() || d.deliveryRate.IsNegative() {
		return deductions{}, fmt.Errorf("%w: negative percentage deduction for %s", pricing.ErrInvalidFormulaInput, in.OfferID)
	}
	if !one.Sub(d.variableRate).Sub(d.deliveryRate).IsPositive() {
		return deductions{}, fmt.Errorf("%w: percentage deductions reach 100%% for %s", pricing.ErrInvalidFormulaInput, in.OfferID)
	}
	return d, nil
}

// CalculatePrice turns the three margin percents into min_price, price and old_price
func (f *MarketplaceFormula) CalculatePrice(
	in pricing.CostInputs,
	percents pricing.MarginPercents,
	coeffs pricing.ObtainCoefficients,
) (pricing.PriceQuote, error) {
	d, err := f.deductionsFor(in, coeffs)
	if err != nil {
		return pricing.PriceQuote{}, err
	}

	minPrice, err := d.priceFor(percents.Floor)
	if err != nil {
		return pricing.PriceQuote{}, err
	}
	price, err := d.priceFor(percents.Normal)
	if err != nil {
		return pricing.PriceQuote{}, err
	}
	oldPrice, err := d.priceFor(percents.Was)
	if err != nil {
		return pricing.PriceQuote{}, err
	}

	return pricing.PriceQuote{
		MinPrice: minPrice,
		Price:    price,
		OldPrice: oldPrice,
	}, nil
}

// priceFor solves P*(1-r) - max(P*d, m) = base*(1+percent/100) for P
func (d deductions) priceFor(percent int) (decimal.Decimal, error) {
	if percent < 0 {
		return decimal.Zero, fmt.Errorf("%w: negative percent %d", pricing.ErrInvalidFormulaInput, percent)
	}
	base := d.effectiveCost.Add(d.flatFees)
	target := base.Mul(hundred.Add(decimal.NewFromInt(int64(percent)))).Div(hundred)

	// Delivery floored at the minimum fee
	candidate := target.Add(d.minDelivery).Div(one.Sub(d.variableRate))
	if candidate.Mul(d.deliveryRate).GreaterThan(d.minDelivery) {
		candidate = target.Div(one.Sub(d.variableRate).Sub(d.deliveryRate))
	}
	return candidate.Ceil(), nil
}

// CalculatePay returns the payout and net profit for a candidate price
func (f *MarketplaceFormula) CalculatePay(
	in pricing.CostInputs,
	coeffs pricing.ObtainCoefficients,
	price decimal.Decimal,
) (pricing.Payout, error) {
	if price.IsNegative() {
		return pricing.Payout{}, fmt.Errorf("%w: negative price %s for %s", pricing.ErrInvalidFormulaInput, price, in.OfferID)
	}
	d, err := f.deductionsFor(in, coeffs)
	if err != nil {
		return pricing.Payout{}, err
	}

	delivery := decimal.Max(price.Mul(d.deliveryRate), d.minDelivery)
	payout := price.
		Sub(price.Mul(d.variableRate)).
		Sub(delivery).
		Sub(d.flatFees)
	net := payout.Sub(d.effectiveCost)

	return pricing.Payout{
		Payout:    payout,
		NetProfit: &net,
	}, nil
}

var _ pricing.PriceFormula = (*MarketplaceFormula)(nil)
