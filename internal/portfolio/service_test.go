package portfolio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/domain"
)

type mockStore struct {
	lots    []domain.Lot
	targets []domain.PriceTarget
	err     error
}

func (m *mockStore) ListByUser(_ context.Context, _ string) ([]domain.Lot, error) {
	return m.lots, m.err
}

func (m *mockStore) ListTargets(_ context.Context, _ string) ([]domain.PriceTarget, error) {
	return m.targets, nil
}

type mockMarket struct {
	histories map[string][]domain.PriceObservation
	quotes    map[string]domain.Quote
	from      time.Time
	tickers   []string
}

func (m *mockMarket) FetchHistories(_ context.Context, tickers []string, from, _ time.Time) (map[string][]domain.PriceObservation, error) {
	m.from = from
	m.tickers = tickers
	return m.histories, nil
}

func (m *mockMarket) FetchQuotes(_ context.Context, tickers []string) (map[string]domain.Quote, error) {
	out := make(map[string]domain.Quote)
	for _, t := range tickers {
		q, ok := m.quotes[t]
		if !ok {
			return nil, domain.ErrMissingData
		}
		out[t] = q
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func fixtures() (*mockStore, *mockMarket) {
	store := &mockStore{
		lots: []domain.Lot{
			{ID: "1", Ticker: "AAPL", Quantity: 10, PurchasePrice: 100, Currency: "USD", Country: "US", PurchaseDate: day(2)},
			{ID: "2", Ticker: "SAP", Quantity: 4, PurchasePrice: 120, Currency: "EUR", Country: "DE", PurchaseDate: day(1)},
			{ID: "3", Ticker: "AAPL", Quantity: 5, PurchasePrice: 110, Currency: "USD", Country: "US", PurchaseDate: day(3)},
		},
		targets: []domain.PriceTarget{{Ticker: "AAPL", Price: 150, CreatedAt: day(5)}},
	}
	market := &mockMarket{
		histories: map[string][]domain.PriceObservation{
			"AAPL": {{Date: day(2), Open: 100}, {Date: day(3), Open: 110}},
			"SAP":  {{Date: day(1), Open: 120}, {Date: day(3), Open: 125}},
		},
		quotes: map[string]domain.Quote{
			"AAPL": {Ticker: "AAPL", Price: 120, Currency: "USD"},
			"SAP":  {Ticker: "SAP", Price: 130, Currency: "EUR"},
		},
	}
	return store, market
}

func newTestService(store *mockStore, market *mockMarket) *Service {
	conv := currency.MustRateTable(currency.Rate{From: "USD", To: "EUR", Rate: 0.5})
	return NewService(store, store, market, conv, Config{BaseCurrency: "EUR", Workers: 2})
}

func TestHistory(t *testing.T) {
	store, market := fixtures()

	out, err := newTestService(store, market).History(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsReady() {
		t.Fatalf("state = %s, want ready", out.State)
	}
	if !market.from.Equal(day(1)) {
		t.Errorf("history requested from %v, want first purchase date", market.from)
	}
	if len(market.tickers) != 2 {
		t.Errorf("requested tickers %v, want 2 distinct", market.tickers)
	}

	entries := out.Value
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Jan 3: AAPL 15 × 110 USD = 825 EUR, SAP 4 × 125 EUR = 500 EUR.
	last := entries[2]
	if math.Abs(last.TotalValue-1325) > 1e-9 {
		t.Errorf("TotalValue = %v, want 1325", last.TotalValue)
	}
	if math.Abs(last.CountryBreakdown["DE"]["SAP"]-500) > 1e-9 {
		t.Errorf("DE/SAP = %v, want 500", last.CountryBreakdown["DE"]["SAP"])
	}
}

func TestHistoryNoLots(t *testing.T) {
	_, market := fixtures()

	out, err := newTestService(&mockStore{}, market).History(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != domain.OutcomeEmpty {
		t.Errorf("state = %s, want empty", out.State)
	}
}

func TestHistoryStoreError(t *testing.T) {
	_, market := fixtures()

	_, err := newTestService(&mockStore{err: errors.New("db down")}, market).History(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSnapshot(t *testing.T) {
	store, market := fixtures()

	out, err := newTestService(store, market).Snapshot(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Value) != 2 {
		t.Fatalf("got %d groups, want 2", len(out.Value))
	}
	aapl := out.Value[0]
	if aapl.Ticker != "AAPL" || aapl.TotalQuantity != 15 || aapl.AvgPurchasePrice != 105 || aapl.LatestTargetPrice != 150 {
		t.Errorf("AAPL group = %+v", aapl)
	}
}

func TestTarget(t *testing.T) {
	store, market := fixtures()

	out, err := newTestService(store, market).Target(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsReady() {
		t.Fatalf("state = %s, want ready", out.State)
	}

	// AAPL: 15 × 120 USD = 900 EUR now, 15 × 150 USD = 1125 EUR target. SAP: 4 × 130 = 520 EUR both.
	res := out.Value
	if res.BaseCurrency != "EUR" {
		t.Errorf("BaseCurrency = %s", res.BaseCurrency)
	}
	if math.Abs(res.CurrentValue-1420) > 1e-9 || math.Abs(res.TargetValue-1645) > 1e-9 {
		t.Errorf("current/target = %v/%v, want 1420/1645", res.CurrentValue, res.TargetValue)
	}
}

func TestTargetMissingQuote(t *testing.T) {
	store, market := fixtures()
	delete(market.quotes, "SAP")

	out, err := newTestService(store, market).Target(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != domain.OutcomeEmpty {
		t.Errorf("state = %s, want empty", out.State)
	}
}
