package channel

import (
	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// DefaultMinStockShare is the stock share a cheaper channel needs to be chosen
var DefaultMinStockShare = decimal.RequireFromString("0.10")

// ThresholdSelector picks the channel with the lower commission, but only when
// that channel holds at least MinStockShare of the total stock. Otherwise the
// channel with more stock wins, and an empty stock defaults to FBS.
type ThresholdSelector struct {
	strategy.Descriptor
	minStockShare decimal.Decimal
}

// NewThresholdSelector creates a selector. A non-positive share uses DefaultMinStockShare.
func NewThresholdSelector(minStockShare decimal.Decimal) *ThresholdSelector {
	if !minStockShare.IsPositive() {
		minStockShare = DefaultMinStockShare
	}
	return &ThresholdSelector{
		Descriptor: strategy.Describe(
			strategy.KindChannelSelection,
			"threshold",
			"Cheaper-commission channel when it holds enough of the stock, else the larger stock",
		),
		minStockShare: minStockShare,
	}
}

// MinStockShare returns the configured minimum share
func (s *ThresholdSelector) MinStockShare() decimal.Decimal {
	return s.minStockShare
}

// SelectChannel implements pricing.ChannelSelector
func (s *ThresholdSelector) SelectChannel(in pricing.ChannelInput) pricing.Channel {
	return s.SelectWarehouse(in.FBOStock, in.FBSStock, in.FBOCommission, in.FBSCommission)
}

// SelectWarehouse decides between FBO and FBS for the given stock and commissions
func (s *ThresholdSelector) SelectWarehouse(fboStock, fbsStock int64, fboCommission, fbsCommission decimal.Decimal) pricing.Channel {
	total := fboStock + fbsStock
	if total <= 0 {
		return pricing.ChannelFBS
	}

	totalDec := decimal.NewFromInt(total)
	fboShare := decimal.NewFromInt(fboStock).Div(totalDec)
	fbsShare := decimal.NewFromInt(fbsStock).Div(totalDec)

	if fboCommission.LessThan(fbsCommission) && fboShare.GreaterThanOrEqual(s.minStockShare) {
		return pricing.ChannelFBO
	}
	if fbsCommission.LessThan(fboCommission) && fbsShare.GreaterThanOrEqual(s.minStockShare) {
		return pricing.ChannelFBS
	}

	if fboStock > fbsStock {
		return pricing.ChannelFBO
	}
	return pricing.ChannelFBS
}

var _ pricing.ChannelSelector = (*ThresholdSelector)(nil)
