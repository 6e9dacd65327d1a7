package channel

import (
	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/domain/shared/strategy"
)

// HigherStockSelector picks whichever channel holds more stock, ignoring
// commissions. Ties, including an empty stock, go to FBS.
type HigherStockSelector struct {
	strategy.Descriptor
}

// NewHigherStockSelector creates the selector
func NewHigherStockSelector() *HigherStockSelector {
	return &HigherStockSelector{
		Descriptor: strategy.Describe(
			strategy.KindChannelSelection,
			"higher_stock",
			"Channel with the larger stock count",
		),
	}
}

// SelectChannel implements pricing.ChannelSelector
func (s *HigherStockSelector) SelectChannel(in pricing.ChannelInput) pricing.Channel {
	if in.FBOStock > in.FBSStock {
		return pricing.ChannelFBO
	}
	return pricing.ChannelFBS
}

var _ pricing.ChannelSelector = (*HigherStockSelector)(nil)
