package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/domain/shared"
)

// maxResponseSize is the maximum allowed response size from the seller API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxOffersPerRequest is the seller API limit of offer ids per product info call
const maxOffersPerRequest = 1000

// Stock sources reported by the seller API
const (
	stockSourceFBO = "fbo"
	stockSourceFBS = "fbs"
)

// Errors returned by the marketplace adapter
var (
	ErrMarketplaceRequestFailed   = errors.New("marketplace: request failed")
	ErrMarketplaceInvalidResponse = errors.New("marketplace: invalid response")
)

// MarketplaceAdapter implements pricing.CatalogClient over the seller API
type MarketplaceAdapter struct {
	config     *MarketplaceConfig
	httpClient *http.Client
}

// NewMarketplaceAdapter creates a new adapter with the given configuration
func NewMarketplaceAdapter(config *MarketplaceConfig) (*MarketplaceAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &MarketplaceAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// GetProductInfo returns catalog metadata of one offer
func (a *MarketplaceAdapter) GetProductInfo(ctx context.Context, offerID string) (*pricing.ProductInfo, error) {
	if strings.TrimSpace(offerID) == "" {
		return nil, shared.ErrInvalidInput.WithMessage("offer id is required")
	}

	products, err := a.GetProductInfoBatch(ctx, []string{offerID})
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].OfferID == offerID {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", pricing.ErrProductNotFound, offerID)
}

// GetProductInfoBatch returns metadata of the offers the catalog knows, in
// response order; offers are requested in chunks of maxOffersPerRequest
func (a *MarketplaceAdapter) GetProductInfoBatch(ctx context.Context, offerIDs []string) ([]pricing.ProductInfo, error) {
	result := make([]pricing.ProductInfo, 0, len(offerIDs))

	for start := 0; start < len(offerIDs); start += maxOffersPerRequest {
		end := min(start+maxOffersPerRequest, len(offerIDs))

		var resp productInfoListResponse
		if err := a.doRequest(ctx, "/v3/product/info/list", productInfoListRequest{OfferID: offerIDs[start:end]}, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Items {
			result = append(result, convertProduct(p))
		}
	}

	return result, nil
}

// GetCategoryTree returns the enabled part of the category tree
func (a *MarketplaceAdapter) GetCategoryTree(ctx context.Context) ([]pricing.CategoryNode, error) {
	var resp categoryTreeResponse
	if err := a.doRequest(ctx, "/v1/description-category/tree", categoryTreeRequest{Language: "DEFAULT"}, &resp); err != nil {
		return nil, err
	}
	return convertCategories(resp.Result), nil
}

// doRequest posts body as JSON to path and decodes the response into out
func (a *MarketplaceAdapter) doRequest(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marketplace: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("marketplace: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", a.config.ClientID)
	req.Header.Set("Api-Key", a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return shared.ErrUpstreamUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("marketplace: failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var apiErr marketplaceError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: HTTP %d: %s", ErrMarketplaceRequestFailed, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%w: HTTP %d", ErrMarketplaceRequestFailed, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMarketplaceInvalidResponse, err)
	}
	return nil
}

// convertProduct maps a seller API product onto catalog metadata. The product
// type id is the key commissions are published under, so it wins over the
// broader description category.
func convertProduct(p marketplaceProduct) pricing.ProductInfo {
	info := pricing.ProductInfo{
		OfferID:      p.OfferID,
		Name:         p.Name,
		CategoryID:   p.TypeID,
		VolumeWeight: p.VolumeWeight,
	}
	if info.CategoryID == 0 {
		info.CategoryID = p.DescriptionCategoryID
	}
	for _, s := range p.Stocks.Stocks {
		switch s.Source {
		case stockSourceFBO:
			info.FBOStock += s.Present
		case stockSourceFBS:
			info.FBSStock += s.Present
		}
	}
	return info
}

func convertCategories(in []marketplaceCategory) []pricing.CategoryNode {
	out := make([]pricing.CategoryNode, 0, len(in))
	for _, c := range in {
		if c.Disabled {
			continue
		}
		node := pricing.CategoryNode{
			ID:       c.DescriptionCategoryID,
			Name:     c.CategoryName,
			Children: convertCategories(c.Children),
		}
		if c.TypeID != 0 {
			node.ID = c.TypeID
			node.Name = c.TypeName
		}
		out = append(out, node)
	}
	return out
}
