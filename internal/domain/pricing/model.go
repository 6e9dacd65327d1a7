package pricing

import (
	"github.com/shopspring/decimal"
)

// CostInputs carries the per-SKU figures the price formula works from. It lives
// for a single optimization call.
type CostInputs struct {
	OfferID string
	// IncomingPrice is the base purchase price of the item
	IncomingPrice decimal.Decimal
	// AvailablePrice overrides IncomingPrice when positive
	AvailablePrice decimal.Decimal
	// SalesCommission is the marketplace commission in percent of the price (20 means 20%)
	SalesCommission decimal.Decimal
	// LogisticsFee is the flat delivery fee for the parcel size
	LogisticsFee       decimal.Decimal
	PackagingCost      decimal.Decimal
	AdvertisingPercent decimal.Decimal
	FBOStock           int64
	FBSStock           int64
	CategoryID         int64
	VolumeWeight       decimal.Decimal
}

// EffectiveCost is AvailablePrice when positive, otherwise IncomingPrice
func (c CostInputs) EffectiveCost() decimal.Decimal {
	return effectiveCost(c.AvailablePrice, c.IncomingPrice)
}

func effectiveCost(available, incoming decimal.Decimal) decimal.Decimal {
	if available.IsPositive() {
		return available
	}
	return incoming
}

// ObtainCoefficients are the process-wide deductions the marketplace applies to
// every sale. Percent fields are in percent of the selling price.
type ObtainCoefficients struct {
	DeliveryToBasePercent decimal.Decimal
	AcquiringPercent      decimal.Decimal
	HandlingFee           decimal.Decimal
	TaxUnit               decimal.Decimal
	MinDeliveryFee        decimal.Decimal
	LabelFee              decimal.Decimal
}

// MarginPercents are the three margin tiers a price formula turns into
// min_price, price and old_price
type MarginPercents struct {
	Floor  int `json:"floor_percent"`
	Normal int `json:"normal_percent"`
	Was    int `json:"was_percent"`
}

// PriceQuote holds the three price points of a SKU
type PriceQuote struct {
	MinPrice decimal.Decimal `json:"min_price"`
	Price    decimal.Decimal `json:"price"`
	OldPrice decimal.Decimal `json:"old_price"`
}

// RetailGap is price minus min_price
func (q PriceQuote) RetailGap() decimal.Decimal {
	return q.Price.Sub(q.MinPrice)
}

// WasGap is old_price minus price
func (q PriceQuote) WasGap() decimal.Decimal {
	return q.OldPrice.Sub(q.Price)
}

// Payout is what the seller keeps for a candidate price. NetProfit is optional:
// formulas that do not compute it leave it nil.
type Payout struct {
	Payout    decimal.Decimal
	NetProfit *decimal.Decimal
}

// Profit returns NetProfit when the formula supplied it, otherwise Payout minus cost
func (p Payout) Profit(cost decimal.Decimal) decimal.Decimal {
	if p.NetProfit != nil {
		return *p.NetProfit
	}
	return p.Payout.Sub(cost)
}

// CommissionEntry holds the commission fractions of one category per channel
type CommissionEntry struct {
	FBO decimal.Decimal `json:"fbo"`
	FBS decimal.Decimal `json:"fbs"`
}

// For returns the fraction that applies to the given channel
func (e CommissionEntry) For(ch Channel) decimal.Decimal {
	if ch == ChannelFBO {
		return e.FBO
	}
	return e.FBS
}
