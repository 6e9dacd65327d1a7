package handler

import (
	apppricing "github.com/erp/marketsync/internal/application/pricing"
	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// PriceItemRequest is one SKU submitted for pricing or a profitability scan.
// SalesCommission (percent) and LogisticsFee feed the scan; optimization
// resolves both itself and overwrites them.
type PriceItemRequest struct {
	OfferID            string          `json:"offer_id" binding:"required"`
	Name               string          `json:"name"`
	IncomingPrice      decimal.Decimal `json:"incoming_price" binding:"gte=0"`
	AvailablePrice     decimal.Decimal `json:"available_price" binding:"gte=0"`
	Price              decimal.Decimal `json:"price" binding:"gte=0"`
	PackagingCost      decimal.Decimal `json:"packaging_cost" binding:"gte=0"`
	AdvertisingPercent decimal.Decimal `json:"advertising_percent" binding:"gte=0,lt=100"`
	CategoryID         int64           `json:"category_id" binding:"gte=0"`
	FBOStock           int64           `json:"fbo_stock" binding:"gte=0"`
	FBSStock           int64           `json:"fbs_stock" binding:"gte=0"`
	VolumeWeight       decimal.Decimal `json:"volume_weight" binding:"gte=0"`
	SalesCommission    decimal.Decimal `json:"sales_commission" binding:"gte=0,lt=100"`
	LogisticsFee       decimal.Decimal `json:"logistics_fee" binding:"gte=0"`
}

// ToDomain converts the request into a batch item
func (r PriceItemRequest) ToDomain() *pricing.PricedItem {
	return &pricing.PricedItem{
		OfferID:            r.OfferID,
		Name:               r.Name,
		IncomingPrice:      r.IncomingPrice,
		AvailablePrice:     r.AvailablePrice,
		Price:              r.Price,
		PackagingCost:      r.PackagingCost,
		AdvertisingPercent: r.AdvertisingPercent,
		CategoryID:         r.CategoryID,
		FBOStock:           r.FBOStock,
		FBSStock:           r.FBSStock,
		VolumeWeight:       r.VolumeWeight,
		SalesCommission:    r.SalesCommission,
		LogisticsFee:       r.LogisticsFee,
	}
}

func toDomainItems(reqs []PriceItemRequest) []*pricing.PricedItem {
	items := make([]*pricing.PricedItem, len(reqs))
	for i, r := range reqs {
		items[i] = r.ToDomain()
	}
	return items
}

// OptimizeRequest is the body of POST /pricing/optimize. Enrich asks the
// marketplace catalog for categories, stocks and weights before pricing.
type OptimizeRequest struct {
	Items  []PriceItemRequest `json:"items" binding:"required,min=1,max=5000,dive"`
	Enrich bool               `json:"enrich"`
}

// OptimizeResponse reports a batch run together with the priced items
type OptimizeResponse struct {
	BatchID  string                   `json:"batch_id"`
	Total    int                      `json:"total"`
	Priced   int                      `json:"priced"`
	Enriched int                      `json:"enriched"`
	Skipped  []apppricing.SkippedItem `json:"skipped"`
	Items    []*pricing.PricedItem    `json:"items"`
}

// ScanRequest is the body of POST /pricing/unprofitable
type ScanRequest struct {
	Items []PriceItemRequest `json:"items" binding:"required,min=1,max=5000,dive"`
}

// CommissionRequest sets the commission fractions of a category (0.15 is 15%)
type CommissionRequest struct {
	FBO decimal.Decimal `json:"fbo"`
	FBS decimal.Decimal `json:"fbs"`
}

// CommissionResponse is a cached category commission
type CommissionResponse struct {
	CategoryID int64           `json:"category_id"`
	FBO        decimal.Decimal `json:"fbo"`
	FBS        decimal.Decimal `json:"fbs"`
}

// TypeIDResponse is the resolved category of a SKU
type TypeIDResponse struct {
	OfferID    string `json:"offer_id"`
	CategoryID int64  `json:"category_id"`
}
