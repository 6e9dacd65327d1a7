package ecommerce

import "github.com/shopspring/decimal"

// productInfoListRequest is the body of POST /v3/product/info/list
type productInfoListRequest struct {
	OfferID []string `json:"offer_id"`
}

type productInfoListResponse struct {
	Items []marketplaceProduct `json:"items"`
}

type marketplaceProduct struct {
	ID                    int64               `json:"id"`
	OfferID               string              `json:"offer_id"`
	Name                  string              `json:"name"`
	DescriptionCategoryID int64               `json:"description_category_id"`
	TypeID                int64               `json:"type_id"`
	VolumeWeight          decimal.Decimal     `json:"volume_weight"`
	Stocks                marketplaceStockSet `json:"stocks"`
}

type marketplaceStockSet struct {
	Stocks []marketplaceStock `json:"stocks"`
}

type marketplaceStock struct {
	Present  int64  `json:"present"`
	Reserved int64  `json:"reserved"`
	Source   string `json:"source"`
}

// categoryTreeRequest is the body of POST /v1/description-category/tree
type categoryTreeRequest struct {
	Language string `json:"language"`
}

type categoryTreeResponse struct {
	Result []marketplaceCategory `json:"result"`
}

// marketplaceCategory is either a description category or, at the leaves, a
// product type; exactly one of the id pairs is populated
type marketplaceCategory struct {
	DescriptionCategoryID int64                 `json:"description_category_id"`
	CategoryName          string                `json:"category_name"`
	TypeID                int64                 `json:"type_id"`
	TypeName              string                `json:"type_name"`
	Disabled              bool                  `json:"disabled"`
	Children              []marketplaceCategory `json:"children"`
}

// marketplaceError is the error body returned with non-2xx statuses
type marketplaceError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
