package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func payoutOnly(v string) pricing.Payout {
	return pricing.Payout{Payout: d(v)}
}

func payoutWithNet(v, net string) pricing.Payout {
	n := d(net)
	return pricing.Payout{Payout: d(v), NetProfit: &n}
}

func TestUnprofitabilityScanner_Scan(t *testing.T) {
	f := new(MockPriceFormula)
	forOffer := func(id string) any {
		return mock.MatchedBy(func(in pricing.CostInputs) bool { return in.OfferID == id })
	}
	f.On("CalculatePay", forOffer("loss-by-payout"), mock.Anything, d("120")).Return(payoutOnly("50"), nil)
	f.On("CalculatePay", forOffer("loss-by-net"), mock.Anything, d("150")).Return(payoutWithNet("100", "-20"), nil)
	f.On("CalculatePay", forOffer("profitable"), mock.Anything, d("500")).Return(payoutOnly("300"), nil)

	items := []*pricing.PricedItem{
		{OfferID: "loss-by-payout", Name: "A", IncomingPrice: d("100"), Price: d("120")},
		{OfferID: "loss-by-net", Name: "B", IncomingPrice: d("100"), Price: d("150")},
		{OfferID: "profitable", Name: "C", IncomingPrice: d("200"), Price: d("500")},
		{OfferID: "no-cost", Name: "D", Price: d("10")},
	}

	metrics := new(MockMetrics)
	metrics.On("RecordScan", mock.Anything, 3, 2, 70.0).Once()

	report := NewUnprofitabilityScanner(f, testCoeffs(), nil).WithMetrics(metrics).Scan(context.Background(), items)

	metrics.AssertExpectations(t)
	assert.Equal(t, 3, report.Scanned)
	require.Len(t, report.Items, 2)

	assert.Equal(t, "loss-by-payout", report.Items[0].OfferID)
	assert.True(t, d("50").Equal(report.Items[0].Loss))
	assert.True(t, d("100").Equal(report.Items[0].IncomingCost))
	assert.True(t, d("120").Equal(report.Items[0].SellingPrice))

	assert.Equal(t, "loss-by-net", report.Items[1].OfferID)
	assert.True(t, d("20").Equal(report.Items[1].Loss), "net profit takes precedence over payout")

	assert.True(t, d("70").Equal(report.TotalLoss))
	f.AssertNotCalled(t, "CalculatePay", forOffer("no-cost"), mock.Anything, mock.Anything)
}

func TestUnprofitabilityScanner_ZeroCostNeverPriced(t *testing.T) {
	f := new(MockPriceFormula)

	report := NewUnprofitabilityScanner(f, testCoeffs(), nil).Scan(context.Background(), []*pricing.PricedItem{
		{OfferID: "zero", IncomingPrice: d("0"), Price: d("10")},
		{OfferID: "negative", IncomingPrice: d("-5"), Price: d("10")},
	})

	assert.Equal(t, 0, report.Scanned)
	assert.Empty(t, report.Items)
	assert.True(t, report.TotalLoss.IsZero())
	f.AssertNotCalled(t, "CalculatePay", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnprofitabilityScanner_UsesAvailablePrice(t *testing.T) {
	f := new(MockPriceFormula)
	f.On("CalculatePay", mock.Anything, mock.Anything, d("100")).Return(payoutOnly("90"), nil)

	report := NewUnprofitabilityScanner(f, testCoeffs(), nil).Scan(context.Background(), []*pricing.PricedItem{
		{OfferID: "x", IncomingPrice: d("0"), AvailablePrice: d("95"), Price: d("100")},
	})

	require.Len(t, report.Items, 1)
	assert.True(t, d("5").Equal(report.Items[0].Loss))
	assert.True(t, d("95").Equal(report.Items[0].IncomingCost))
}

func TestUnprofitabilityScanner_FormulaErrorCountsAsFailed(t *testing.T) {
	f := new(MockPriceFormula)
	f.On("CalculatePay", mock.Anything, mock.Anything, mock.Anything).Return(pricing.Payout{}, errors.New("negative price"))

	report := NewUnprofitabilityScanner(f, testCoeffs(), nil).Scan(context.Background(), []*pricing.PricedItem{
		{OfferID: "x", IncomingPrice: d("10"), Price: d("-1")},
	})

	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, report.Items)
}
