package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
	four    = decimal.NewFromInt(4)
)

// SeedCurve parametrises the starting margin of InitialPercentEstimator.
// base = MarginFloor + MarginTarget / (cost + SmoothingOffset) * 100
type SeedCurve struct {
	MarginFloor     decimal.Decimal
	MarginTarget    decimal.Decimal
	SmoothingOffset decimal.Decimal
	// Fallback percents for items without a known cost
	FallbackWas    int
	FallbackNormal int
	FallbackFloor  int
}

// DefaultSeedCurve returns the curve used when configuration leaves it unset
func DefaultSeedCurve() SeedCurve {
	return SeedCurve{
		MarginFloor:     decimal.NewFromInt(10),
		MarginTarget:    decimal.NewFromInt(50),
		SmoothingOffset: decimal.NewFromInt(100),
		FallbackWas:     80,
		FallbackNormal:  40,
		FallbackFloor:   20,
	}
}

// InitialPercentEstimator seeds the three margin tiers from an item's cost.
// Cheap items start with a larger margin; expensive ones converge to MarginFloor.
type InitialPercentEstimator struct {
	curve SeedCurve
}

// NewInitialPercentEstimator creates an estimator for the given curve
func NewInitialPercentEstimator(curve SeedCurve) InitialPercentEstimator {
	return InitialPercentEstimator{curve: curve}
}

// InitialPercents returns the starting tiers for an effective incoming cost
func (e InitialPercentEstimator) InitialPercents(cost decimal.Decimal) MarginPercents {
	if !cost.IsPositive() {
		return MarginPercents{
			Floor:  e.curve.FallbackFloor,
			Normal: e.curve.FallbackNormal,
			Was:    e.curve.FallbackWas,
		}
	}

	base := e.curve.MarginFloor.Add(
		e.curve.MarginTarget.Div(cost.Add(e.curve.SmoothingOffset)).Mul(hundred),
	)

	return MarginPercents{
		Floor:  roundPercent(base),
		Normal: roundPercent(base.Mul(two)),
		Was:    roundPercent(base.Mul(four)),
	}
}

func roundPercent(d decimal.Decimal) int {
	return int(d.Round(0).IntPart())
}
