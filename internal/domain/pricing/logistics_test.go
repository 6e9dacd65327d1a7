package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLogisticsTariffTable_Lookup(t *testing.T) {
	table := DefaultLogisticsTariffTable()

	tests := []struct {
		name   string
		weight decimal.Decimal
		want   string
	}{
		{"unknown weight gets first tier", decimal.Zero, "17.28"},
		{"negative weight gets first tier", d("-1"), "17.28"},
		{"between tiers rounds up", d("0.3"), "19.32"},
		{"exact bound is inclusive", d("0.4"), "19.32"},
		{"smallest parcel", d("0.05"), "17.28"},
		{"heavy parcel", d("12"), "139.68"},
		{"largest bounded tier", d("75"), "629.28"},
		{"above every bound hits catch-all", d("1000"), "805.20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, d(tt.want).Equal(table.Lookup(tt.weight)), "got %s", table.Lookup(tt.weight))
		})
	}
}

func TestNewLogisticsTariffTable_SortsRows(t *testing.T) {
	table := NewLogisticsTariffTable([]LogisticsTariffRow{
		{CatchAll: true, Fee: d("99")},
		{MaxVolume: d("5"), Fee: d("50")},
		{MaxVolume: d("1"), Fee: d("10")},
	})

	rows := table.Rows()
	assert.True(t, d("1").Equal(rows[0].MaxVolume))
	assert.True(t, d("5").Equal(rows[1].MaxVolume))
	assert.True(t, rows[2].CatchAll)

	assert.True(t, d("10").Equal(table.Lookup(decimal.Zero)))
	assert.True(t, d("50").Equal(table.Lookup(d("3"))))
	assert.True(t, d("99").Equal(table.Lookup(d("6"))))
}

func TestLogisticsTariffTable_WithoutCatchAll(t *testing.T) {
	table := NewLogisticsTariffTable([]LogisticsTariffRow{
		{MaxVolume: d("1"), Fee: d("10")},
		{MaxVolume: d("2"), Fee: d("20")},
	})
	assert.True(t, d("20").Equal(table.Lookup(d("7"))))
}

func TestLogisticsTariffTable_Empty(t *testing.T) {
	assert.True(t, NewLogisticsTariffTable(nil).Lookup(d("1")).IsZero())
}
