// Package strategy registers the price formulas and channel selectors the
// service can be configured with.
package strategy

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/erp/marketsync/internal/domain/shared"
	"github.com/erp/marketsync/internal/domain/shared/strategy"
)

// catalog holds the strategies of one kind plus the name picked when a
// lookup asks for none.
type catalog[T strategy.Strategy] struct {
	kind     strategy.Kind
	entries  map[string]T
	fallback string
}

func newCatalog[T strategy.Strategy](kind strategy.Kind) *catalog[T] {
	return &catalog[T]{kind: kind, entries: make(map[string]T)}
}

func (c *catalog[T]) add(s T) error {
	if s.Kind() != c.kind {
		return fmt.Errorf("%w: %s '%s' registered as %s", shared.ErrInvalidInput, s.Kind(), s.Name(), c.kind)
	}
	if _, dup := c.entries[s.Name()]; dup {
		return fmt.Errorf("%w: %s '%s' already registered", shared.ErrAlreadyExists, c.kind, s.Name())
	}
	c.entries[s.Name()] = s
	return nil
}

func (c *catalog[T]) lookup(name string) (T, error) {
	var zero T
	if name == "" {
		if c.fallback == "" {
			return zero, fmt.Errorf("%w: no default %s set", shared.ErrNotFound, c.kind)
		}
		name = c.fallback
	}
	s, ok := c.entries[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s '%s' not found", shared.ErrNotFound, c.kind, name)
	}
	return s, nil
}

func (c *catalog[T]) setFallback(name string) error {
	if _, ok := c.entries[name]; !ok {
		return fmt.Errorf("%w: %s '%s' not found", shared.ErrNotFound, c.kind, name)
	}
	c.fallback = name
	return nil
}

func (c *catalog[T]) names() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

// StrategyRegistry is safe for concurrent use
type StrategyRegistry struct {
	mu       sync.RWMutex
	formulas *catalog[strategy.PriceFormulaStrategy]
	channels *catalog[strategy.ChannelSelectionStrategy]
}

// NewStrategyRegistry creates an empty registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		formulas: newCatalog[strategy.PriceFormulaStrategy](strategy.KindPriceFormula),
		channels: newCatalog[strategy.ChannelSelectionStrategy](strategy.KindChannelSelection),
	}
}

func (r *StrategyRegistry) RegisterPriceFormula(s strategy.PriceFormulaStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.formulas.add(s)
}

func (r *StrategyRegistry) RegisterChannelSelector(s strategy.ChannelSelectionStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels.add(s)
}

// PriceFormula returns the named formula, or the default one for an empty name
func (r *StrategyRegistry) PriceFormula(name string) (strategy.PriceFormulaStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.formulas.lookup(name)
}

// ChannelSelector returns the named selector, or the default one for an empty name
func (r *StrategyRegistry) ChannelSelector(name string) (strategy.ChannelSelectionStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels.lookup(name)
}

// Names lists the registered names of a kind in sorted order
func (r *StrategyRegistry) Names(kind strategy.Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch kind {
	case strategy.KindPriceFormula:
		return r.formulas.names()
	case strategy.KindChannelSelection:
		return r.channels.names()
	}
	return nil
}

// SetDefault picks the strategy returned for an empty name. It must be
// registered already.
func (r *StrategyRegistry) SetDefault(kind strategy.Kind, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch kind {
	case strategy.KindPriceFormula:
		return r.formulas.setFallback(name)
	case strategy.KindChannelSelection:
		return r.channels.setFallback(name)
	}
	return fmt.Errorf("%w: unknown strategy kind '%s'", shared.ErrInvalidInput, kind)
}

// Default returns the default name of a kind, empty when none is set
func (r *StrategyRegistry) Default(kind strategy.Kind) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch kind {
	case strategy.KindPriceFormula:
		return r.formulas.fallback
	case strategy.KindChannelSelection:
		return r.channels.fallback
	}
	return ""
}
