package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricedItem is one SKU of a batch. The optimizer fills the result fields in place.
type PricedItem struct {
	OfferID            string          `json:"offer_id"`
	Name               string          `json:"name"`
	IncomingPrice      decimal.Decimal `json:"incoming_price"`
	AvailablePrice     decimal.Decimal `json:"available_price"`
	Price              decimal.Decimal `json:"price"`
	PackagingCost      decimal.Decimal `json:"packaging_cost"`
	AdvertisingPercent decimal.Decimal `json:"advertising_percent"`
	CategoryID         int64           `json:"category_id"`
	FBOStock           int64           `json:"fbo_stock"`
	FBSStock           int64           `json:"fbs_stock"`
	VolumeWeight       decimal.Decimal `json:"volume_weight"`

	Percents        *MarginPercents `json:"percents,omitempty"`
	SalesCommission decimal.Decimal `json:"sales_commission"`
	LogisticsFee    decimal.Decimal `json:"logistics_fee"`
	Quote           *PriceQuote     `json:"quote,omitempty"`
}

// EffectiveCost is AvailablePrice when positive, otherwise IncomingPrice
func (i *PricedItem) EffectiveCost() decimal.Decimal {
	return effectiveCost(i.AvailablePrice, i.IncomingPrice)
}

// IsPriced reports whether the optimizer produced a quote for the item
func (i *PricedItem) IsPriced() bool {
	return i.Quote != nil
}

// CostInputs builds the formula inputs from the item and its resolved
// commission and logistics fee
func (i *PricedItem) CostInputs() CostInputs {
	return CostInputs{
		OfferID:            i.OfferID,
		IncomingPrice:      i.IncomingPrice,
		AvailablePrice:     i.AvailablePrice,
		SalesCommission:    i.SalesCommission,
		LogisticsFee:       i.LogisticsFee,
		PackagingCost:      i.PackagingCost,
		AdvertisingPercent: i.AdvertisingPercent,
		FBOStock:           i.FBOStock,
		FBSStock:           i.FBSStock,
		CategoryID:         i.CategoryID,
		VolumeWeight:       i.VolumeWeight,
	}
}

// ApplyProductInfo copies catalog metadata onto the item
func (i *PricedItem) ApplyProductInfo(info ProductInfo) {
	if info.CategoryID != 0 {
		i.CategoryID = info.CategoryID
	}
	if i.Name == "" {
		i.Name = info.Name
	}
	i.FBOStock = info.FBOStock
	i.FBSStock = info.FBSStock
	if info.VolumeWeight.IsPositive() {
		i.VolumeWeight = info.VolumeWeight
	}
}

// Batch is the shared record a pricing run works on
type Batch struct {
	ID    uuid.UUID
	Items []*PricedItem
}

// NewBatch creates a batch with a fresh id
func NewBatch(items []*PricedItem) *Batch {
	return &Batch{
		ID:    uuid.New(),
		Items: items,
	}
}

// OfferIDs returns the offer ids of the batch in order
func (b *Batch) OfferIDs() []string {
	ids := make([]string, 0, len(b.Items))
	for _, item := range b.Items {
		ids = append(ids, item.OfferID)
	}
	return ids
}
