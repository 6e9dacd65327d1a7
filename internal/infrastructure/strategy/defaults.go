package strategy

import (
	"fmt"

	"github.com/erp/marketsync/internal/domain/shared/strategy"
	"github.com/erp/marketsync/internal/infrastructure/strategy/channel"
	"github.com/erp/marketsync/internal/infrastructure/strategy/formula"
	"github.com/shopspring/decimal"
)

// NewRegistryWithDefaults registers the marketplace formula and both channel
// selectors. higher_stock is the default channel rule of batch optimization.
// minStockShare configures the threshold selector.
func NewRegistryWithDefaults(minStockShare decimal.Decimal) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()
	marketplace := formula.NewMarketplaceFormula()
	higherStock := channel.NewHigherStockSelector()

	for _, step := range []func() error{
		func() error { return r.RegisterPriceFormula(marketplace) },
		func() error { return r.RegisterChannelSelector(higherStock) },
		func() error { return r.RegisterChannelSelector(channel.NewThresholdSelector(minStockShare)) },
		func() error { return r.SetDefault(strategy.KindPriceFormula, marketplace.Name()) },
		func() error { return r.SetDefault(strategy.KindChannelSelection, higherStock.Name()) },
	} {
		if err := step(); err != nil {
			return nil, fmt.Errorf("register default strategies: %w", err)
		}
	}
	return r, nil
}
