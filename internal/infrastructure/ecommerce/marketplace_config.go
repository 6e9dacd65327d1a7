package ecommerce

import (
	"errors"
	"strings"
	"time"
)

// MarketplaceProductionAPIURL is the production seller API endpoint
const MarketplaceProductionAPIURL = "https://api-seller.ozon.ru"

// MarketplaceConfig holds the seller API credentials and transport settings
type MarketplaceConfig struct {
	// BaseURL is the seller API root, without a trailing slash
	BaseURL  string
	ClientID string
	APIKey   string
	Timeout  time.Duration
}

// Errors for marketplace configuration
var (
	ErrMarketplaceConfigMissingClientID = errors.New("marketplace: client id is required")
	ErrMarketplaceConfigMissingAPIKey   = errors.New("marketplace: api key is required")
)

// NewMarketplaceConfig creates a configuration with production defaults
func NewMarketplaceConfig(clientID, apiKey string) *MarketplaceConfig {
	return &MarketplaceConfig{
		BaseURL:  MarketplaceProductionAPIURL,
		ClientID: clientID,
		APIKey:   apiKey,
		Timeout:  30 * time.Second,
	}
}

// Validate checks credentials and fills transport defaults
func (c *MarketplaceConfig) Validate() error {
	if c.ClientID == "" {
		return ErrMarketplaceConfigMissingClientID
	}
	if c.APIKey == "" {
		return ErrMarketplaceConfigMissingAPIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = MarketplaceProductionAPIURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
