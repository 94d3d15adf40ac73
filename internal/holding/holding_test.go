package holding

import (
	"testing"
	"time"

	"github.com/mtlprog/folio/internal/domain"
)

func TestBuild(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	lots := []domain.Lot{
		{Ticker: "MSFT", Currency: "USD", Quantity: 2, PurchasePrice: 300},
		{Ticker: "AAPL", Currency: "USD", Quantity: 10, PurchasePrice: 100},
		{Ticker: "aapl", Currency: "usd", Quantity: 30, PurchasePrice: 200},
		{Ticker: "AAPL", Currency: "EUR", Quantity: 1, PurchasePrice: 90},
	}
	targets := []domain.PriceTarget{
		{Ticker: "AAPL", Price: 250, CreatedAt: now},
		{Ticker: "AAPL", Price: 180, CreatedAt: now.Add(-24 * time.Hour)},
		{Ticker: "AAPL", Price: 300, CreatedAt: now.Add(24 * time.Hour)},
	}

	groups := Build(lots, targets)

	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	wantOrder := [][2]string{{"AAPL", "EUR"}, {"AAPL", "USD"}, {"MSFT", "USD"}}
	for i, w := range wantOrder {
		if groups[i].Ticker != w[0] || groups[i].Currency != w[1] {
			t.Errorf("groups[%d] = %s/%s, want %s/%s", i, groups[i].Ticker, groups[i].Currency, w[0], w[1])
		}
	}

	usd := groups[1]
	if usd.TotalQuantity != 40 {
		t.Errorf("TotalQuantity = %v, want 40", usd.TotalQuantity)
	}
	// Unweighted: (100 + 200) / 2, not (10*100 + 30*200) / 40.
	if usd.AvgPurchasePrice != 150 {
		t.Errorf("AvgPurchasePrice = %v, want 150", usd.AvgPurchasePrice)
	}
	if usd.LotCount != 2 {
		t.Errorf("LotCount = %d, want 2", usd.LotCount)
	}
	if usd.LatestTargetPrice != 300 {
		t.Errorf("LatestTargetPrice = %v, want 300", usd.LatestTargetPrice)
	}
	if groups[2].LatestTargetPrice != 0 {
		t.Errorf("MSFT LatestTargetPrice = %v, want 0", groups[2].LatestTargetPrice)
	}
}

func TestBuildEmpty(t *testing.T) {
	if groups := Build(nil, nil); len(groups) != 0 {
		t.Errorf("Build(nil, nil) = %v, want empty", groups)
	}
}
