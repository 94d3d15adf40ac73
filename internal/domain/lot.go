package domain

import "time"

// Lot is one purchase record of a ticker.
type Lot struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Ticker        string    `json:"ticker"`
	PurchaseDate  time.Time `json:"purchaseDate"`
	PurchasePrice float64   `json:"purchasePrice"`
	Quantity      float64   `json:"quantity"`
	Currency      string    `json:"currency"`
	Country       string    `json:"country"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PriceObservation is one day of a ticker's price history.
type PriceObservation struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceTarget is a manually entered target price for a ticker.
type PriceTarget struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

// Quote is the current quote and company profile of a ticker.
type Quote struct {
	Ticker       string  `json:"ticker"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	Country      string  `json:"country"`
	Shares       float64 `json:"sharesOutstanding"`
	ReferenceDCF float64 `json:"referenceDcf"`
}

// SnapshotGroup aggregates all lots of one ticker/currency pair.
// AvgPurchasePrice is the unweighted mean of the lots' purchase prices.
type SnapshotGroup struct {
	Ticker            string  `json:"ticker"`
	Currency          string  `json:"currency"`
	TotalQuantity     float64 `json:"totalQuantity"`
	AvgPurchasePrice  float64 `json:"avgPurchasePrice"`
	LatestTargetPrice float64 `json:"latestTargetPrice"`
	LotCount          int     `json:"lotCount"`
}

// DateValueEntry is the portfolio value on one date.
type DateValueEntry struct {
	Date             time.Time                     `json:"date"`
	TotalValue       float64                       `json:"totalValue"`
	Breakdown        map[string]float64            `json:"breakdown"`
	CountryBreakdown map[string]map[string]float64 `json:"countryBreakdown"`
}

// HoldingTarget is the current and target value of one snapshot group in the base currency.
type HoldingTarget struct {
	Ticker       string  `json:"ticker"`
	Currency     string  `json:"currency"`
	Quantity     float64 `json:"quantity"`
	MarketPrice  float64 `json:"marketPrice"`
	TargetPrice  float64 `json:"targetPrice"`
	ManualTarget bool    `json:"manualTarget"`
	CurrentValue float64 `json:"currentValue"`
	TargetValue  float64 `json:"targetValue"`
}

// PortfolioTarget is the portfolio-wide target value.
type PortfolioTarget struct {
	BaseCurrency  string          `json:"baseCurrency"`
	CurrentValue  float64         `json:"currentValue"`
	TargetValue   float64         `json:"targetValue"`
	UpsidePercent float64         `json:"upsidePercent"`
	Holdings      []HoldingTarget `json:"holdings"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
