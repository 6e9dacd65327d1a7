package pricing

import "github.com/shopspring/decimal"

// Channel is a fulfillment channel of the marketplace
type Channel string

const (
	// ChannelFBO is warehouse-fulfilled: stock sits in the marketplace warehouse
	ChannelFBO Channel = "fbo"
	// ChannelFBS is seller-fulfilled: each order ships from the seller's warehouse
	ChannelFBS Channel = "fbs"
)

// String returns the string representation of Channel
func (c Channel) String() string {
	return string(c)
}

// IsValid returns true if the channel is known
func (c Channel) IsValid() bool {
	return c == ChannelFBO || c == ChannelFBS
}

// ChannelInput is what a ChannelSelector decides on
type ChannelInput struct {
	FBOStock      int64
	FBSStock      int64
	FBOCommission decimal.Decimal
	FBSCommission decimal.Decimal
}

// ChannelSelector chooses the channel whose commission and logistics apply to a SKU
type ChannelSelector interface {
	SelectChannel(in ChannelInput) Channel
}
