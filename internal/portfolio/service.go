// Package portfolio assembles a user's lots, targets and market data into value history,
// snapshot and target views.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/breakdown"
	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/holding"
	"github.com/mtlprog/folio/internal/target"
)

// LotStore defines the lot storage used by the service.
type LotStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Lot, error)
}

// TargetStore defines the price target storage used by the service.
type TargetStore interface {
	ListTargets(ctx context.Context, userID string) ([]domain.PriceTarget, error)
}

// MarketData defines the subset of the market data client used by the service.
type MarketData interface {
	FetchHistories(ctx context.Context, tickers []string, from, to time.Time) (map[string][]domain.PriceObservation, error)
	FetchQuotes(ctx context.Context, tickers []string) (map[string]domain.Quote, error)
}

// Config holds the portfolio engine settings.
type Config struct {
	BaseCurrency string
	Workers      int
	MaxPoints    int
}

// Service builds portfolio views for a user.
type Service struct {
	lots    LotStore
	targets TargetStore
	market  MarketData
	conv    currency.Converter
	cfg     Config
	now     func() time.Time
}

// NewService creates a new portfolio service.
func NewService(lots LotStore, targets TargetStore, market MarketData, conv currency.Converter, cfg Config) *Service {
	return &Service{lots: lots, targets: targets, market: market, conv: conv, cfg: cfg, now: time.Now}
}

// BaseCurrency returns the currency all portfolio values are expressed in.
func (s *Service) BaseCurrency() string {
	return s.cfg.BaseCurrency
}

// History returns the daily value of the user's lots from the first purchase until today.
func (s *Service) History(ctx context.Context, userID string) (domain.Outcome[[]domain.DateValueEntry], error) {
	lots, err := s.userLots(ctx, userID)
	if err != nil || len(lots) == 0 {
		return noLots[[]domain.DateValueEntry](userID, err)
	}

	first := lo.MinBy(lots, func(a, b domain.Lot) bool { return a.PurchaseDate.Before(b.PurchaseDate) })
	histories, err := s.market.FetchHistories(ctx, tickers(lots), domain.DateOnly(first.PurchaseDate), s.now())
	if err != nil {
		return domain.Outcome[[]domain.DateValueEntry]{}, fmt.Errorf("fetching histories for %s: %w", userID, err)
	}

	engine := breakdown.Engine{
		BaseCurrency: s.cfg.BaseCurrency,
		Converter:    s.conv,
		Workers:      s.cfg.Workers,
		MaxPoints:    s.cfg.MaxPoints,
	}
	entries, err := engine.Build(ctx, lots, histories)
	if err != nil {
		return emptyOr[[]domain.DateValueEntry](fmt.Errorf("building history for %s: %w", userID, err))
	}
	return domain.Ready(entries), nil
}

// Snapshot groups the user's lots by ticker and currency.
func (s *Service) Snapshot(ctx context.Context, userID string) (domain.Outcome[[]domain.SnapshotGroup], error) {
	lots, err := s.userLots(ctx, userID)
	if err != nil || len(lots) == 0 {
		return noLots[[]domain.SnapshotGroup](userID, err)
	}

	targets, err := s.targets.ListTargets(ctx, userID)
	if err != nil {
		return domain.Outcome[[]domain.SnapshotGroup]{}, fmt.Errorf("listing targets for %s: %w", userID, err)
	}
	return domain.Ready(holding.Build(lots, targets)), nil
}

// Target values the user's holdings at their live quotes and at their target prices.
func (s *Service) Target(ctx context.Context, userID string) (domain.Outcome[domain.PortfolioTarget], error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil || !snap.IsReady() {
		return domain.Outcome[domain.PortfolioTarget]{State: snap.State, Reason: snap.Reason}, err
	}

	quotes, err := s.market.FetchQuotes(ctx, lo.Map(snap.Value, func(g domain.SnapshotGroup, _ int) string { return g.Ticker }))
	if err != nil {
		return emptyOr[domain.PortfolioTarget](fmt.Errorf("fetching quotes for %s: %w", userID, err))
	}

	res, err := target.Aggregate(snap.Value, quotes, s.cfg.BaseCurrency, s.conv)
	if err != nil {
		return emptyOr[domain.PortfolioTarget](fmt.Errorf("aggregating targets for %s: %w", userID, err))
	}
	return domain.Ready(res), nil
}

func (s *Service) userLots(ctx context.Context, userID string) ([]domain.Lot, error) {
	lots, err := s.lots.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing lots for %s: %w", userID, err)
	}
	return lots, nil
}

func tickers(lots []domain.Lot) []string {
	return lo.Uniq(lo.Map(lots, func(l domain.Lot, _ int) string { return l.Ticker }))
}

func noLots[T any](userID string, err error) (domain.Outcome[T], error) {
	if err != nil {
		return domain.Outcome[T]{}, err
	}
	return domain.Empty[T](fmt.Sprintf("no lots for %s", userID)), nil
}

func emptyOr[T any](err error) (domain.Outcome[T], error) {
	out := domain.OutcomeOf(*new(T), err)
	if out.State == domain.OutcomeEmpty {
		return out, nil
	}
	return domain.Outcome[T]{}, err
}
