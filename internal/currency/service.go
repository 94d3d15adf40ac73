package currency

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// RateSource fetches current exchange rates from an upstream provider.
type RateSource interface {
	FetchRates(ctx context.Context) ([]Rate, error)
}

// Service keeps the current rate table, loaded from the database and refreshed from a RateSource.
// It implements Converter over the most recently loaded table.
type Service struct {
	source RateSource
	repo   RateRepository
	table  atomic.Pointer[RateTable]
}

// NewService creates a currency Service. The table is empty until Load or FetchAndStoreRates runs.
func NewService(source RateSource, repo RateRepository) *Service {
	s := &Service{source: source, repo: repo}
	s.table.Store(MustRateTable())
	return s
}

// FetchAndStoreRates fetches all rates from the source, stores them, and reloads the table.
func (s *Service) FetchAndStoreRates(ctx context.Context) error {
	rates, err := s.source.FetchRates(ctx)
	if err != nil {
		return fmt.Errorf("fetching exchange rates: %w", err)
	}

	for _, r := range rates {
		if err := r.Validate(); err != nil {
			slog.Warn("skipping invalid exchange rate", "from", r.From, "to", r.To, "error", err)
			continue
		}
		if err := s.repo.SaveRate(ctx, normalize(r.From), normalize(r.To), decimal.NewFromFloat(r.Rate)); err != nil {
			return fmt.Errorf("storing rate %s/%s: %w", r.From, r.To, err)
		}
	}

	return s.Load(ctx)
}

// Load replaces the current table with the rates stored in the database.
// Rows that fail validation are logged and skipped.
func (s *Service) Load(ctx context.Context) error {
	stored, err := s.repo.GetAllRates(ctx)
	if err != nil {
		return fmt.Errorf("loading exchange rates: %w", err)
	}

	rates := make([]Rate, 0, len(stored))
	for _, sr := range stored {
		f, _ := sr.Rate.Float64()
		r := Rate{From: sr.From, To: sr.To, Rate: f}
		if err := r.Validate(); err != nil {
			slog.Warn("skipping stored exchange rate", "from", sr.From, "to", sr.To, "error", err)
			continue
		}
		rates = append(rates, r)
	}

	table, err := NewRateTable(rates)
	if err != nil {
		return fmt.Errorf("building rate table: %w", err)
	}
	s.table.Store(table)
	slog.Info("exchange rates loaded", "pairs", table.Len())
	return nil
}

// Table returns the current rate table.
func (s *Service) Table() *RateTable {
	return s.table.Load()
}

// Convert converts using the current table.
func (s *Service) Convert(amount float64, from, to string) (float64, error) {
	return s.table.Load().Convert(amount, from, to)
}
