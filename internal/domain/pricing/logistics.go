package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LogisticsTariffRow maps parcels up to MaxVolume (inclusive) to a flat fee.
// A CatchAll row has no upper bound.
type LogisticsTariffRow struct {
	MaxVolume decimal.Decimal
	CatchAll  bool
	Fee       decimal.Decimal
}

// LogisticsTariffTable brackets volumetric weight into a flat delivery fee
type LogisticsTariffTable struct {
	rows []LogisticsTariffRow
}

// NewLogisticsTariffTable creates a table from rows in any order. Bounded rows are
// sorted by MaxVolume ascending and catch-all rows go last.
func NewLogisticsTariffTable(rows []LogisticsTariffRow) *LogisticsTariffTable {
	sorted := make([]LogisticsTariffRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CatchAll != sorted[j].CatchAll {
			return !sorted[i].CatchAll
		}
		return sorted[i].MaxVolume.LessThan(sorted[j].MaxVolume)
	})
	return &LogisticsTariffTable{rows: sorted}
}

// Rows returns a copy of the tariff rows
func (t *LogisticsTariffTable) Rows() []LogisticsTariffRow {
	result := make([]LogisticsTariffRow, len(t.rows))
	copy(result, t.rows)
	return result
}

// Lookup returns the fee for a volumetric weight. Unknown sizes (zero or
// negative weight) get the first tier; weights above every bound get the last row.
func (t *LogisticsTariffTable) Lookup(volumeWeight decimal.Decimal) decimal.Decimal {
	if len(t.rows) == 0 {
		return decimal.Zero
	}
	if !volumeWeight.IsPositive() {
		return t.rows[0].Fee
	}
	for _, row := range t.rows {
		if row.CatchAll || row.MaxVolume.GreaterThanOrEqual(volumeWeight) {
			return row.Fee
		}
	}
	return t.rows[len(t.rows)-1].Fee
}

// DefaultLogisticsTariffTable is the seller-fulfilled delivery tariff by volumetric
// weight in kilograms
func DefaultLogisticsTariffTable() *LogisticsTariffTable {
	bounded := []struct {
		max string
		fee string
	}{
		{"0.2", "17.28"},
		{"0.4", "19.32"},
		{"0.6", "21.36"},
		{"0.8", "23.40"},
		{"1", "25.44"},
		{"1.5", "29.52"},
		{"2", "33.60"},
		{"3", "41.76"},
		{"4", "49.92"},
		{"5", "58.08"},
		{"6", "66.24"},
		{"7", "74.40"},
		{"8", "82.56"},
		{"9", "90.72"},
		{"10", "98.88"},
		{"15", "139.68"},
		{"20", "180.48"},
		{"25", "221.28"},
		{"30", "262.08"},
		{"50", "425.28"},
		{"75", "629.28"},
	}
	rows := make([]LogisticsTariffRow, 0, len(bounded)+1)
	for _, b := range bounded {
		rows = append(rows, LogisticsTariffRow{
			MaxVolume: decimal.RequireFromString(b.max),
			Fee:       decimal.RequireFromString(b.fee),
		})
	}
	rows = append(rows, LogisticsTariffRow{CatchAll: true, Fee: decimal.RequireFromString("805.20")})
	return NewLogisticsTariffTable(rows)
}
