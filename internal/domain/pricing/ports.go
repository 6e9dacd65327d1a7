package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceFormula converts margin percents into price points and prices a payout.
// Implementations must be pure, and every price point of CalculatePrice must be
// non-decreasing in its percent input; MarginTieringSolver relies on it.
type PriceFormula interface {
	CalculatePrice(in CostInputs, percents MarginPercents, coeffs ObtainCoefficients) (PriceQuote, error)
	CalculatePay(in CostInputs, coeffs ObtainCoefficients, price decimal.Decimal) (Payout, error)
}

// KeyValueStore is the shared cache behind commission and category lookups.
// Get reports found=false on a miss; an error means the store itself failed.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// ProductInfo is the catalog metadata of one SKU
type ProductInfo struct {
	OfferID      string
	Name         string
	CategoryID   int64
	FBOStock     int64
	FBSStock     int64
	VolumeWeight decimal.Decimal
}

// CategoryNode is one node of the marketplace category tree
type CategoryNode struct {
	ID       int64
	Name     string
	Children []CategoryNode
}

// CatalogClient is the marketplace catalog as seen by the pricing core
type CatalogClient interface {
	// GetProductInfo returns ErrProductNotFound when the catalog has no such offer
	GetProductInfo(ctx context.Context, offerID string) (*ProductInfo, error)
	// GetProductInfoBatch returns the products it found; unknown offers are omitted
	GetProductInfoBatch(ctx context.Context, offerIDs []string) ([]ProductInfo, error)
	GetCategoryTree(ctx context.Context) ([]CategoryNode, error)
}
