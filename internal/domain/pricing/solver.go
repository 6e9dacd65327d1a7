package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SolverConfig holds the knobs of MarginTieringSolver
type SolverConfig struct {
	// MinProfit is the profit required at min_price. The retail gap must reach
	// 2*MinProfit and the was gap 4*MinProfit.
	MinProfit decimal.Decimal
	// Step is the percent escalation per iteration
	Step int
	// MaxIterations caps each stage
	MaxIterations int
}

// DefaultSolverConfig returns the solver defaults
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MinProfit:     decimal.NewFromInt(20),
		Step:          10,
		MaxIterations: 100,
	}
}

// MarginTieringSolver finds margin percents whose quote keeps a minimum profit at
// min_price and minimum gaps between the three price points.
//
// The search runs three stages, each escalating one tier by Step until its
// constraint holds:
//  1. profit at min_price >= MinProfit (floor grows, normal and was reset to 2x)
//  2. price - min_price >= 2*MinProfit (normal grows, was reset to 2x)
//  3. old_price - price >= 4*MinProfit (was grows)
//
// Termination relies on the formula being non-decreasing in each percent; every
// stage is still capped at MaxIterations and returns a StageCapError past it.
type MarginTieringSolver struct {
	formula   PriceFormula
	estimator InitialPercentEstimator
	cfg       SolverConfig
}

// NewMarginTieringSolver creates a solver
func NewMarginTieringSolver(formula PriceFormula, estimator InitialPercentEstimator, cfg SolverConfig) *MarginTieringSolver {
	if cfg.Step <= 0 {
		cfg.Step = DefaultSolverConfig().Step
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultSolverConfig().MaxIterations
	}
	return &MarginTieringSolver{
		formula:   formula,
		estimator: estimator,
		cfg:       cfg,
	}
}

// Config returns the solver configuration
func (s *MarginTieringSolver) Config() SolverConfig {
	return s.cfg
}

// Solve returns the final margin percents for the given inputs
func (s *MarginTieringSolver) Solve(in CostInputs, coeffs ObtainCoefficients) (MarginPercents, error) {
	cost := in.EffectiveCost()
	percents := s.estimator.InitialPercents(cost)

	quote, err := s.formula.CalculatePrice(in, percents, coeffs)
	if err != nil {
		return MarginPercents{}, err
	}

	profit, err := s.profitAt(in, coeffs, quote.MinPrice, cost)
	if err != nil {
		return MarginPercents{}, err
	}

	for i := 0; profit.LessThan(s.cfg.MinProfit); i++ {
		if i >= s.cfg.MaxIterations {
			return MarginPercents{}, &StageCapError{Stage: StageProfitFloor, Iterations: i, Percents: percents}
		}
		percents.Floor += s.cfg.Step
		percents.Normal = 2 * percents.Floor
		percents.Was = 2 * percents.Normal

		if quote, err = s.formula.CalculatePrice(in, percents, coeffs); err != nil {
			return MarginPercents{}, err
		}
		if profit, err = s.profitAt(in, coeffs, quote.MinPrice, cost); err != nil {
			return MarginPercents{}, err
		}
	}

	minRetailGap := s.cfg.MinProfit.Mul(two)
	for i := 0; quote.RetailGap().LessThan(minRetailGap); i++ {
		if i >= s.cfg.MaxIterations {
			return MarginPercents{}, &StageCapError{Stage: StageRetailGap, Iterations: i, Percents: percents}
		}
		percents.Normal += s.cfg.Step
		percents.Was = 2 * percents.Normal

		if quote, err = s.formula.CalculatePrice(in, percents, coeffs); err != nil {
			return MarginPercents{}, err
		}
	}

	minWasGap := s.cfg.MinProfit.Mul(four)
	for i := 0; quote.WasGap().LessThan(minWasGap); i++ {
		if i >= s.cfg.MaxIterations {
			return MarginPercents{}, &StageCapError{Stage: StageWasGap, Iterations: i, Percents: percents}
		}
		percents.Was += s.cfg.Step

		if quote, err = s.formula.CalculatePrice(in, percents, coeffs); err != nil {
			return MarginPercents{}, err
		}
	}

	return percents, nil
}

// SolveQuote runs Solve and prices the resulting percents
func (s *MarginTieringSolver) SolveQuote(in CostInputs, coeffs ObtainCoefficients) (MarginPercents, PriceQuote, error) {
	percents, err := s.Solve(in, coeffs)
	if err != nil {
		return MarginPercents{}, PriceQuote{}, err
	}
	quote, err := s.formula.CalculatePrice(in, percents, coeffs)
	if err != nil {
		return MarginPercents{}, PriceQuote{}, err
	}
	return percents, quote, nil
}

func (s *MarginTieringSolver) profitAt(in CostInputs, coeffs ObtainCoefficients, price, cost decimal.Decimal) (decimal.Decimal, error) {
	pay, err := s.formula.CalculatePay(in, coeffs, price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("payout at %s: %w", price.String(), err)
	}
	return pay.Profit(cost), nil
}
