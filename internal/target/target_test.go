package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/domain"
)

func TestAggregate(t *testing.T) {
	groups := []domain.SnapshotGroup{
		{Ticker: "AAPL", Currency: "USD", TotalQuantity: 10, LatestTargetPrice: 250},
		{Ticker: "SAP", Currency: "EUR", TotalQuantity: 4},
	}
	quotes := map[string]domain.Quote{
		"AAPL": {Ticker: "AAPL", Price: 200, Currency: "USD"},
		"SAP":  {Ticker: "SAP", Price: 100, Currency: "EUR"},
	}
	conv := currency.MustRateTable(currency.Rate{From: "EUR", To: "USD", Rate: 1.5})

	got, err := Aggregate(groups, quotes, "usd", conv)
	require.NoError(t, err)

	assert.Equal(t, "USD", got.BaseCurrency)
	require.Len(t, got.Holdings, 2)

	aapl := got.Holdings[0]
	assert.True(t, aapl.ManualTarget)
	assert.InDelta(t, 2000.0, aapl.CurrentValue, 1e-9)
	assert.InDelta(t, 2500.0, aapl.TargetValue, 1e-9)

	sap := got.Holdings[1]
	assert.False(t, sap.ManualTarget)
	assert.InDelta(t, 600.0, sap.CurrentValue, 1e-9)
	assert.InDelta(t, 600.0, sap.TargetValue, 1e-9)

	assert.InDelta(t, 2600.0, got.CurrentValue, 1e-9)
	assert.InDelta(t, 3100.0, got.TargetValue, 1e-9)
	assert.InDelta(t, 500.0/2600*100, got.UpsidePercent, 1e-9)
}

func TestAggregateZeroCurrentValue(t *testing.T) {
	groups := []domain.SnapshotGroup{{Ticker: "X", Currency: "USD", TotalQuantity: 0, LatestTargetPrice: 10}}
	quotes := map[string]domain.Quote{"X": {Ticker: "X", Price: 5}}

	got, err := Aggregate(groups, quotes, "USD", currency.MustRateTable())
	require.NoError(t, err)
	assert.Zero(t, got.UpsidePercent)
}

func TestAggregateErrors(t *testing.T) {
	groups := []domain.SnapshotGroup{{Ticker: "AAPL", Currency: "JPY", TotalQuantity: 1}}

	_, err := Aggregate(groups, map[string]domain.Quote{}, "USD", currency.MustRateTable())
	assert.ErrorIs(t, err, domain.ErrMissingData)

	_, err = Aggregate(groups, map[string]domain.Quote{"AAPL": {Price: 1}}, "USD", currency.MustRateTable())
	assert.ErrorIs(t, err, domain.ErrUnresolvedCurrencyPair)
}
