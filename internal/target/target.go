// Package target computes what the portfolio would be worth if every holding reached its target price.
package target

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/domain"
)

// Aggregate values each snapshot group at its live quote and at its target price, in the base
// currency. A manual target greater than zero wins over the quote price.
func Aggregate(groups []domain.SnapshotGroup, quotes map[string]domain.Quote, base string, conv currency.Converter) (domain.PortfolioTarget, error) {
	holdings := make([]domain.HoldingTarget, 0, len(groups))

	for _, g := range groups {
		q, ok := quotes[strings.ToUpper(g.Ticker)]
		if !ok {
			return domain.PortfolioTarget{}, fmt.Errorf("no quote for %s: %w", g.Ticker, domain.ErrMissingData)
		}

		targetPrice, manual := q.Price, false
		if g.LatestTargetPrice > 0 {
			targetPrice, manual = g.LatestTargetPrice, true
		}

		current, err := conv.Convert(g.TotalQuantity*q.Price, g.Currency, base)
		if err != nil {
			return domain.PortfolioTarget{}, fmt.Errorf("converting current value of %s: %w", g.Ticker, err)
		}
		tgt, err := conv.Convert(g.TotalQuantity*targetPrice, g.Currency, base)
		if err != nil {
			return domain.PortfolioTarget{}, fmt.Errorf("converting target value of %s: %w", g.Ticker, err)
		}

		holdings = append(holdings, domain.HoldingTarget{
			Ticker:       g.Ticker,
			Currency:     g.Currency,
			Quantity:     g.TotalQuantity,
			MarketPrice:  q.Price,
			TargetPrice:  targetPrice,
			ManualTarget: manual,
			CurrentValue: current,
			TargetValue:  tgt,
		})
	}

	current := lo.SumBy(holdings, func(h domain.HoldingTarget) float64 { return h.CurrentValue })
	tgt := lo.SumBy(holdings, func(h domain.HoldingTarget) float64 { return h.TargetValue })

	var upside float64
	if current != 0 {
		upside = (tgt - current) / current * 100
	}

	return domain.PortfolioTarget{
		BaseCurrency:  strings.ToUpper(base),
		CurrentValue:  current,
		TargetValue:   tgt,
		UpsidePercent: upside,
		Holdings:      holdings,
	}, nil
}
