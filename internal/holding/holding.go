// Package holding groups purchase lots into per-ticker snapshot rows.
package holding

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/stats"
)

type groupKey struct {
	ticker, currency string
}

// Build groups lots by ticker and currency. AvgPurchasePrice is the plain mean of the lots'
// purchase prices, not weighted by quantity. LatestTargetPrice is the most recently created
// target for the ticker, or 0 when there is none.
func Build(lots []domain.Lot, targets []domain.PriceTarget) []domain.SnapshotGroup {
	latest := LatestTargets(targets)

	grouped := lo.GroupBy(lots, func(l domain.Lot) groupKey {
		return groupKey{ticker: strings.ToUpper(l.Ticker), currency: strings.ToUpper(l.Currency)}
	})

	groups := make([]domain.SnapshotGroup, 0, len(grouped))
	for key, members := range grouped {
		groups = append(groups, domain.SnapshotGroup{
			Ticker:            key.ticker,
			Currency:          key.currency,
			TotalQuantity:     lo.SumBy(members, func(l domain.Lot) float64 { return l.Quantity }),
			AvgPurchasePrice:  stats.Mean(lo.Map(members, func(l domain.Lot, _ int) float64 { return l.PurchasePrice })),
			LatestTargetPrice: latest[key.ticker].Price,
			LotCount:          len(members),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Ticker != groups[j].Ticker {
			return groups[i].Ticker < groups[j].Ticker
		}
		return groups[i].Currency < groups[j].Currency
	})
	return groups
}

// LatestTargets returns the most recently created target per upper-cased ticker.
func LatestTargets(targets []domain.PriceTarget) map[string]domain.PriceTarget {
	return lo.Reduce(targets, func(acc map[string]domain.PriceTarget, t domain.PriceTarget, _ int) map[string]domain.PriceTarget {
		ticker := strings.ToUpper(t.Ticker)
		if cur, ok := acc[ticker]; !ok || t.CreatedAt.After(cur.CreatedAt) {
			acc[ticker] = t
		}
		return acc
	}, make(map[string]domain.PriceTarget))
}
