// Package report generates and stores daily portfolio reports per user.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

// PortfolioSource defines the portfolio views a report is built from.
type PortfolioSource interface {
	BaseCurrency() string
	History(ctx context.Context, userID string) (domain.Outcome[[]domain.DateValueEntry], error)
	Snapshot(ctx context.Context, userID string) (domain.Outcome[[]domain.SnapshotGroup], error)
	Target(ctx context.Context, userID string) (domain.Outcome[domain.PortfolioTarget], error)
}

// Summary condenses the value history into the figures a report shows.
// Amounts are rounded to cents.
type Summary struct {
	AsOf          time.Time                  `json:"asOf"`
	TotalValue    decimal.Decimal            `json:"totalValue"`
	FirstValue    decimal.Decimal            `json:"firstValue"`
	ChangePercent decimal.Decimal            `json:"changePercent"`
	ByTicker      map[string]decimal.Decimal `json:"byTicker"`
	ByCountry     map[string]decimal.Decimal `json:"byCountry"`
}

// PortfolioReport is the stored content of a daily report. Each section carries its own
// outcome so that one unavailable view does not hide the others.
type PortfolioReport struct {
	UserID       string                                 `json:"userId"`
	Date         time.Time                              `json:"date"`
	BaseCurrency string                                 `json:"baseCurrency"`
	Summary      domain.Outcome[Summary]                `json:"summary"`
	Holdings     domain.Outcome[[]domain.SnapshotGroup] `json:"holdings"`
	Target       domain.Outcome[domain.PortfolioTarget] `json:"target"`

	// History is kept for post-generation hooks and is not stored.
	History []domain.DateValueEntry `json:"-"`
}

// Service manages report generation and retrieval.
type Service struct {
	source PortfolioSource
	repo   Repository
}

// NewService creates a new report service.
func NewService(source PortfolioSource, repo Repository) *Service {
	return &Service{source: source, repo: repo}
}

// Generate builds and stores the report of userID for date.
func (s *Service) Generate(ctx context.Context, userID string, date time.Time) (PortfolioReport, error) {
	rep := PortfolioReport{
		UserID:       userID,
		Date:         domain.DateOnly(date),
		BaseCurrency: s.source.BaseCurrency(),
	}

	history := section[[]domain.DateValueEntry](userID, "history")(s.source.History(ctx, userID))
	rep.Summary = domain.Outcome[Summary]{State: history.State, Reason: history.Reason}
	if history.IsReady() {
		rep.History = history.Value
		rep.Summary = summarize(history.Value)
	}
	rep.Holdings = section[[]domain.SnapshotGroup](userID, "holdings")(s.source.Snapshot(ctx, userID))
	rep.Target = section[domain.PortfolioTarget](userID, "target")(s.source.Target(ctx, userID))

	data, err := json.Marshal(rep)
	if err != nil {
		return PortfolioReport{}, fmt.Errorf("marshaling report: %w", err)
	}
	if err := s.repo.Save(ctx, userID, rep.Date, data); err != nil {
		return PortfolioReport{}, fmt.Errorf("saving report: %w", err)
	}
	return rep, nil
}

// section turns a failed view into a failed outcome so the rest of the report is still written.
func section[T any](userID, name string) func(domain.Outcome[T], error) domain.Outcome[T] {
	return func(out domain.Outcome[T], err error) domain.Outcome[T] {
		if err != nil {
			slog.Warn("report section failed", "user", userID, "section", name, "error", err)
			return domain.Failed[T](err)
		}
		return out
	}
}

func summarize(entries []domain.DateValueEntry) domain.Outcome[Summary] {
	if len(entries) == 0 {
		return domain.Empty[Summary]("no history entries")
	}

	first, last := entries[0], entries[len(entries)-1]
	total := decimal.NewFromFloat(last.TotalValue)
	start := decimal.NewFromFloat(first.TotalValue)

	change := decimal.Zero
	if !start.IsZero() {
		change = total.Sub(start).Div(start).Mul(decimal.NewFromInt(100))
	}

	byCountry := lo.MapValues(last.CountryBreakdown, func(tickers map[string]float64, _ string) decimal.Decimal {
		return round(lo.Sum(lo.Values(tickers)))
	})

	return domain.Ready(Summary{
		AsOf:          last.Date,
		TotalValue:    total.Round(2),
		FirstValue:    start.Round(2),
		ChangePercent: change.Round(2),
		ByTicker:      lo.MapValues(last.Breakdown, func(v float64, _ string) decimal.Decimal { return round(v) }),
		ByCountry:     byCountry,
	})
}

func round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// GetLatest retrieves the most recent report of a user.
func (s *Service) GetLatest(ctx context.Context, userID string) (*Stored, error) {
	return s.repo.GetLatest(ctx, userID)
}

// GetByDate retrieves the report of a user for a specific date.
func (s *Service) GetByDate(ctx context.Context, userID string, date time.Time) (*Stored, error) {
	return s.repo.GetByDate(ctx, userID, date)
}

// List retrieves recent reports of a user.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Stored, error) {
	return s.repo.List(ctx, userID, limit)
}
