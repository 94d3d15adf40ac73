package breakdown

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func obs(d time.Time, open float64) domain.PriceObservation {
	return domain.PriceObservation{Date: d, Open: open, Close: open + 1}
}

func usdEngine() Engine {
	return Engine{
		BaseCurrency: "USD",
		Converter:    currency.MustRateTable(currency.Rate{From: "EUR", To: "USD", Rate: 2}),
		Workers:      3,
	}
}

func TestBuildSumInvariant(t *testing.T) {
	lots := []domain.Lot{
		{ID: "1", Ticker: "AAPL", Quantity: 10, Currency: "USD", Country: "US", PurchaseDate: day(2024, 1, 1)},
		{ID: "2", Ticker: "SAP", Quantity: 5, Currency: "EUR", Country: "DE", PurchaseDate: day(2024, 1, 2)},
		{ID: "3", Ticker: "AAPL", Quantity: 1, Currency: "USD", Country: "US", PurchaseDate: day(2024, 1, 3)},
	}
	histories := map[string][]domain.PriceObservation{
		"AAPL": {obs(day(2024, 1, 1), 100), obs(day(2024, 1, 2), 101), obs(day(2024, 1, 3), 102), obs(day(2024, 1, 5), 104)},
		"SAP":  {obs(day(2024, 1, 2), 50), obs(day(2024, 1, 4), 52)},
	}

	entries, err := usdEngine().Build(context.Background(), lots, histories)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	for i, e := range entries {
		if i > 0 {
			assert.True(t, e.Date.After(entries[i-1].Date), "dates must be strictly ascending")
		}
		var sum, countrySum float64
		for _, v := range e.Breakdown {
			sum += v
		}
		for _, tickers := range e.CountryBreakdown {
			for _, v := range tickers {
				countrySum += v
			}
		}
		assert.InDelta(t, e.TotalValue, sum, 1e-9)
		assert.InDelta(t, e.TotalValue, countrySum, 1e-9)
	}

	// Jan 4: AAPL carries the Jan 3 open for both lots, SAP uses its Jan 4 open in EUR.
	jan4 := entries[3]
	assert.Equal(t, day(2024, 1, 4), jan4.Date)
	assert.InDelta(t, 11*102.0, jan4.Breakdown["AAPL"], 1e-9)
	assert.InDelta(t, 5*52*2.0, jan4.Breakdown["SAP"], 1e-9)
	assert.InDelta(t, 5*52*2.0, jan4.CountryBreakdown["DE"]["SAP"], 1e-9)
}

func TestBuildZeroBeforePurchase(t *testing.T) {
	lots := []domain.Lot{
		{ID: "1", Ticker: "AAPL", Quantity: 10, Currency: "USD", Country: "US", PurchaseDate: day(2024, 1, 3)},
	}
	histories := map[string][]domain.PriceObservation{
		"AAPL": {obs(day(2024, 1, 1), 100), obs(day(2024, 1, 2), 101), obs(day(2024, 1, 3), 102)},
	}

	entries, err := usdEngine().Build(context.Background(), lots, histories)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, e := range entries[:2] {
		v, ok := e.Breakdown["AAPL"]
		assert.True(t, ok, "every ticker is present in the breakdown")
		assert.Zero(t, v)
		assert.Zero(t, e.TotalValue)
	}
	assert.InDelta(t, 1020.0, entries[2].TotalValue, 1e-9)
}

func TestBuildTwoLotsAYearApart(t *testing.T) {
	lots := []domain.Lot{
		{ID: "a", Ticker: "KO", Quantity: 1, Currency: "USD", Country: "US", PurchaseDate: day(2022, 6, 1)},
		{ID: "b", Ticker: "KO", Quantity: 3, Currency: "USD", Country: "US", PurchaseDate: day(2023, 6, 1)},
	}
	histories := map[string][]domain.PriceObservation{
		"KO": {
			obs(day(2022, 6, 1), 60),
			obs(day(2022, 12, 1), 62),
			obs(day(2023, 6, 1), 58),
			obs(day(2023, 12, 1), 61),
		},
	}

	entries, err := usdEngine().Build(context.Background(), lots, histories)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	want := []float64{60, 62, 4 * 58, 4 * 61}
	for i, w := range want {
		assert.InDelta(t, w, entries[i].TotalValue, 1e-9, "entry %d", i)
	}
}

func TestBuildPurchaseBetweenObservations(t *testing.T) {
	lots := []domain.Lot{
		{ID: "1", Ticker: "AAPL", Quantity: 2, Currency: "USD", Country: "US", PurchaseDate: day(2024, 1, 2)},
	}
	histories := map[string][]domain.PriceObservation{
		"AAPL": {obs(day(2024, 1, 1), 100), obs(day(2024, 1, 3), 103)},
		"MSFT": {obs(day(2024, 1, 2), 300)},
	}

	entries, err := usdEngine().Build(context.Background(), lots, histories)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Jan 2: the only AAPL observation on or before the date predates the purchase.
	assert.Zero(t, entries[1].TotalValue)
	assert.InDelta(t, 206.0, entries[2].TotalValue, 1e-9)
}

func TestBuildUnsortedHistory(t *testing.T) {
	lots := []domain.Lot{{ID: "1", Ticker: "AAPL", Quantity: 1, Currency: "USD", PurchaseDate: day(2024, 1, 1)}}
	sorted := map[string][]domain.PriceObservation{
		"AAPL": {obs(day(2024, 1, 1), 1), obs(day(2024, 1, 2), 2), obs(day(2024, 1, 3), 3)},
	}
	shuffled := map[string][]domain.PriceObservation{
		"AAPL": {obs(day(2024, 1, 3), 3), obs(day(2024, 1, 1), 1), obs(day(2024, 1, 2), 2)},
	}

	a, err := usdEngine().Build(context.Background(), lots, sorted)
	require.NoError(t, err)
	b, err := usdEngine().Build(context.Background(), lots, shuffled)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildWorkerCountDoesNotChangeResult(t *testing.T) {
	var history []domain.PriceObservation
	for i := range 200 {
		history = append(history, obs(day(2023, 1, 1).AddDate(0, 0, i), float64(i+1)))
	}
	var lots []domain.Lot
	for i := range 7 {
		lots = append(lots, domain.Lot{
			ID: fmt.Sprint(i), Ticker: "X", Quantity: float64(i + 1), Currency: "USD", Country: "US",
			PurchaseDate: day(2023, 1, 1).AddDate(0, 0, i*20),
		})
	}
	histories := map[string][]domain.PriceObservation{"X": history}

	serial := usdEngine()
	serial.Workers = 1
	parallel := usdEngine()
	parallel.Workers = 16

	a, err := serial.Build(context.Background(), lots, histories)
	require.NoError(t, err)
	b, err := parallel.Build(context.Background(), lots, histories)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildErrors(t *testing.T) {
	lots := []domain.Lot{{ID: "1", Ticker: "AAPL", Quantity: 1, Currency: "JPY", PurchaseDate: day(2024, 1, 1)}}
	histories := map[string][]domain.PriceObservation{"AAPL": {obs(day(2024, 1, 1), 1), obs(day(2024, 1, 2), 2)}}

	_, err := usdEngine().Build(context.Background(), nil, histories)
	assert.ErrorIs(t, err, domain.ErrMissingData)

	_, err = usdEngine().Build(context.Background(), lots, nil)
	assert.ErrorIs(t, err, domain.ErrMissingData)

	_, err = usdEngine().Build(context.Background(), lots, histories)
	assert.ErrorIs(t, err, domain.ErrUnresolvedCurrencyPair)

	limited := usdEngine()
	limited.MaxPoints = 1
	_, err = limited.Build(context.Background(), lots, histories)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	usd := []domain.Lot{{ID: "1", Ticker: "AAPL", Quantity: 1, Currency: "USD", PurchaseDate: day(2024, 1, 1)}}
	_, err = usdEngine().Build(ctx, usd, histories)
	assert.ErrorIs(t, err, context.Canceled)
}
