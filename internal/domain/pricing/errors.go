package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrIterationCapExceeded is returned when an escalation stage of the solver
	// does not converge within its iteration budget
	ErrIterationCapExceeded = errors.New("pricing: iteration cap exceeded")
	// ErrInvalidFormulaInput is returned by a price formula for inputs it cannot price
	ErrInvalidFormulaInput = errors.New("pricing: invalid formula input")
	// ErrCommissionNotFound indicates the commission cache has no entry for a category
	ErrCommissionNotFound = errors.New("pricing: commission not found")
	// ErrCategoryNotFound indicates no category identifier could be resolved for a SKU
	ErrCategoryNotFound = errors.New("pricing: category not found")
	// ErrProductNotFound indicates the catalog has no product with the requested offer id
	ErrProductNotFound = errors.New("pricing: product not found")
	// ErrEmptySpreadsheet indicates an import workbook without any sheet or data row
	ErrEmptySpreadsheet = errors.New("pricing: spreadsheet has no data rows")
)

// Stage names an escalation stage of MarginTieringSolver
type Stage string

const (
	StageProfitFloor Stage = "profit_floor"
	StageRetailGap   Stage = "retail_gap"
	StageWasGap      Stage = "was_gap"
)

// StageCapError reports which solver stage ran out of iterations and the
// percents it had reached at that point
type StageCapError struct {
	Stage      Stage
	Iterations int
	Percents   MarginPercents
}

func (e *StageCapError) Error() string {
	return fmt.Sprintf("%s: stage %s after %d iterations (floor=%d normal=%d was=%d)",
		ErrIterationCapExceeded, e.Stage, e.Iterations, e.Percents.Floor, e.Percents.Normal, e.Percents.Was)
}

// Unwrap lets errors.Is match ErrIterationCapExceeded
func (e *StageCapError) Unwrap() error {
	return ErrIterationCapExceeded
}
