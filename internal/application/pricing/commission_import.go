package pricing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/domain/shared"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// CommissionUnit says how bare numbers in a commission column are read.
// Values with a "%" suffix are percents whatever the unit.
type CommissionUnit string

const (
	// CommissionUnitAuto decides per column: a column is in percent when its
	// header or any of its values carries "%", or any value exceeds 1
	CommissionUnitAuto     CommissionUnit = ""
	CommissionUnitPercent  CommissionUnit = "percent"
	CommissionUnitFraction CommissionUnit = "fraction"
)

// SheetLayout locates the columns of a commission spreadsheet (0-based)
type SheetLayout struct {
	HeaderRows int
	NameColumn int
	FBOColumn  int
	FBSColumn  int
	Unit       CommissionUnit
}

// DefaultSheetLayout is the marketplace commission export: category name in
// column A, FBO commission in C and FBS commission in E, one header row
func DefaultSheetLayout() SheetLayout {
	return SheetLayout{
		HeaderRows: 1,
		NameColumn: 0,
		FBOColumn:  2,
		FBSColumn:  4,
	}
}

// MalformedRow is a spreadsheet row that could not be read
type MalformedRow struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult summarises a commission spreadsheet import
type ImportResult struct {
	Loaded    int            `json:"loaded"`
	Unmatched []string       `json:"unmatched"`
	Malformed []MalformedRow `json:"malformed"`
}

var maxFraction = decimal.NewFromInt(1)

// LoadCommissionsFromXlsx reads category commissions from the first sheet of an
// xlsx workbook and upserts every row whose category name is found in the
// catalog category tree. Unknown names and unreadable rows are reported in the
// result and never abort the import.
func (r *CommissionResolver) LoadCommissionsFromXlsx(ctx context.Context, src io.Reader) (*ImportResult, error) {
	if r.catalog == nil {
		return nil, shared.ErrInvalidState.WithMessage("commission import needs a catalog client")
	}

	book, err := excelize.OpenReader(src)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage("failed to open workbook").Wrap(err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, pricing.ErrEmptySpreadsheet
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) <= r.layout.HeaderRows {
		return nil, pricing.ErrEmptySpreadsheet
	}

	tree, err := r.catalog.GetCategoryTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category tree: %w", err)
	}
	index := indexCategoryNames(tree)

	units := columnUnits{
		fboPercent: r.percentColumn(rows, r.layout.FBOColumn),
		fbsPercent: r.percentColumn(rows, r.layout.FBSColumn),
	}

	result := &ImportResult{
		Unmatched: make([]string, 0),
		Malformed: make([]MalformedRow, 0),
	}
	for i, row := range rows[r.layout.HeaderRows:] {
		rowNum := r.layout.HeaderRows + i + 1
		name := strings.TrimSpace(cell(row, r.layout.NameColumn))
		if name == "" {
			continue
		}

		categoryID, ok := index[normalizeCategoryName(name)]
		if !ok {
			result.Unmatched = append(result.Unmatched, name)
			continue
		}

		entry, err := r.parseCommissionRow(row, units)
		if err != nil {
			result.Malformed = append(result.Malformed, MalformedRow{Row: rowNum, Name: name, Reason: err.Error()})
			continue
		}

		if err := r.SetCommission(ctx, categoryID, entry); err != nil {
			return result, fmt.Errorf("failed to store commission of %q: %w", name, err)
		}
		result.Loaded++
	}

	logger.FromContext(ctx).Info("commission spreadsheet imported",
		zap.Int("loaded", result.Loaded),
		zap.Int("unmatched", len(result.Unmatched)),
		zap.Int("malformed", len(result.Malformed)),
	)
	return result, nil
}

type columnUnits struct {
	fboPercent bool
	fbsPercent bool
}

// percentColumn fixes the unit of a whole column so that a bare "1" means the
// same thing in every row
func (r *CommissionResolver) percentColumn(rows [][]string, col int) bool {
	switch r.layout.Unit {
	case CommissionUnitPercent:
		return true
	case CommissionUnitFraction:
		return false
	}

	for _, row := range rows[:r.layout.HeaderRows] {
		if strings.Contains(cell(row, col), "%") {
			return true
		}
	}
	for _, row := range rows[r.layout.HeaderRows:] {
		s := strings.TrimSpace(cell(row, col))
		if strings.HasSuffix(s, "%") {
			return true
		}
		if v, err := parseDecimal(s); err == nil && v.GreaterThan(maxFraction) {
			return true
		}
	}
	return false
}

func (r *CommissionResolver) parseCommissionRow(row []string, units columnUnits) (pricing.CommissionEntry, error) {
	fbo, err := parseCommissionFraction(cell(row, r.layout.FBOColumn), units.fboPercent)
	if err != nil {
		return pricing.CommissionEntry{}, fmt.Errorf("fbo commission: %w", err)
	}
	fbs, err := parseCommissionFraction(cell(row, r.layout.FBSColumn), units.fbsPercent)
	if err != nil {
		return pricing.CommissionEntry{}, fmt.Errorf("fbs commission: %w", err)
	}
	return pricing.CommissionEntry{FBO: fbo, FBS: fbs}, nil
}

// parseCommissionFraction returns the fraction held by a cell. Bare numbers
// are percents in a percent column and fractions otherwise; "15%" is always
// a percent.
func parseCommissionFraction(raw string, percentColumn bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}

	percent := percentColumn || strings.HasSuffix(s, "%")
	v, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", raw)
	}
	if percent {
		v = v.Div(hundred)
	}
	if v.IsNegative() || v.GreaterThan(maxFraction) {
		return decimal.Zero, fmt.Errorf("out of range: %q", raw)
	}
	return v, nil
}

// parseDecimal reads "19,5", "19.5" and "19.5 %" alike
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// normalizeCategoryName collapses whitespace and case folds the name, so
// "Садовый  Инвентарь" and "садовый инвентарь" share a key.
func normalizeCategoryName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// indexCategoryNames walks the category tree depth-first with an explicit
// stack and maps every normalized name to its id. The first node reached in
// pre-order wins when names repeat.
func indexCategoryNames(roots []pricing.CategoryNode) map[string]int64 {
	index := make(map[string]int64)

	stack := make([]*pricing.CategoryNode, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, &roots[i])
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := normalizeCategoryName(node.Name)
		if _, seen := index[key]; !seen && key != "" {
			index[key] = node.ID
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, &node.Children[i])
		}
	}

	return index
}
