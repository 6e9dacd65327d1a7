// Package strategy names the interchangeable pricing policies so they can be
// registered and picked by configuration.
package strategy

import "github.com/erp/marketsync/internal/domain/pricing"

// Kind groups strategies that answer the same question
type Kind string

const (
	// KindPriceFormula turns margin percents into price points and payouts
	KindPriceFormula Kind = "price_formula"
	// KindChannelSelection picks the fulfillment channel whose figures apply
	KindChannelSelection Kind = "channel_selection"
)

// Strategy is a named policy
type Strategy interface {
	Name() string
	Kind() Kind
	Description() string
}

// PriceFormulaStrategy is a named pricing.PriceFormula
type PriceFormulaStrategy interface {
	Strategy
	pricing.PriceFormula
}

// ChannelSelectionStrategy is a named pricing.ChannelSelector
type ChannelSelectionStrategy interface {
	Strategy
	pricing.ChannelSelector
}

// Descriptor holds the identity of a strategy. Embedding it satisfies Strategy.
type Descriptor struct {
	kind        Kind
	name        string
	description string
}

// Describe creates a Descriptor
func Describe(kind Kind, name, description string) Descriptor {
	return Descriptor{kind: kind, name: name, description: description}
}

func (d Descriptor) Name() string        { return d.name }
func (d Descriptor) Kind() Kind          { return d.kind }
func (d Descriptor) Description() string { return d.description }
