// Package breakdown computes the date-indexed value history of a set of purchase lots in a
// single base currency, broken down by ticker and by country.
package breakdown

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/domain"
)

// DefaultMaxPoints bounds dates × lots when the engine is built without an explicit limit.
const DefaultMaxPoints = 5_000_000

// Engine values lots against their tickers' price histories.
type Engine struct {
	BaseCurrency string
	Converter    currency.Converter
	Workers      int
	MaxPoints    int
}

type series struct {
	dates []time.Time
	opens []float64
}

// Build returns one entry per distinct history date, ascending. On each date a lot is worth
// quantity × open of the latest observation of its ticker dated on or before that date and on or
// after the lot's purchase date, converted to the base currency. Lots with no such observation
// contribute 0.
func (e Engine) Build(ctx context.Context, lots []domain.Lot, histories map[string][]domain.PriceObservation) ([]domain.DateValueEntry, error) {
	if len(lots) == 0 {
		return nil, fmt.Errorf("no lots to value: %w", domain.ErrMissingData)
	}

	byTicker := make(map[string]series, len(histories))
	for ticker, obs := range histories {
		byTicker[strings.ToUpper(ticker)] = newSeries(obs)
	}

	dates := unionDates(byTicker)
	if len(dates) == 0 {
		return nil, fmt.Errorf("no price history for %d lots: %w", len(lots), domain.ErrMissingData)
	}

	maxPoints := e.MaxPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	if len(dates)*len(lots) > maxPoints {
		return nil, fmt.Errorf("%d dates x %d lots exceeds limit of %d: %w", len(dates), len(lots), maxPoints, domain.ErrInvalidInput)
	}

	prepared := lo.Map(lots, func(l domain.Lot, _ int) preparedLot {
		return preparedLot{
			ticker:    strings.ToUpper(l.Ticker),
			country:   l.Country,
			currency:  l.Currency,
			quantity:  l.Quantity,
			purchased: domain.DateOnly(l.PurchaseDate),
		}
	})

	if e.Converter == nil {
		e.Converter = currency.MustRateTable()
	}

	entries := make([]domain.DateValueEntry, len(dates))
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(dates) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(dates); start += chunk {
		end := min(start+chunk, len(dates))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				entry, err := e.valueOn(dates[i], prepared, byTicker)
				if err != nil {
					return err
				}
				entries[i] = entry
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}

type preparedLot struct {
	ticker    string
	country   string
	currency  string
	quantity  float64
	purchased time.Time
}

func (e Engine) valueOn(date time.Time, lots []preparedLot, byTicker map[string]series) (domain.DateValueEntry, error) {
	entry := domain.DateValueEntry{
		Date:             date,
		Breakdown:        make(map[string]float64),
		CountryBreakdown: make(map[string]map[string]float64),
	}

	for _, l := range lots {
		if _, ok := entry.Breakdown[l.ticker]; !ok {
			entry.Breakdown[l.ticker] = 0
		}
		country, ok := entry.CountryBreakdown[l.country]
		if !ok {
			country = make(map[string]float64)
			entry.CountryBreakdown[l.country] = country
		}
		if _, ok := country[l.ticker]; !ok {
			country[l.ticker] = 0
		}

		open, ok := byTicker[l.ticker].lastOpen(l.purchased, date)
		if !ok {
			continue
		}

		value, err := e.Converter.Convert(l.quantity*open, l.currency, e.BaseCurrency)
		if err != nil {
			return domain.DateValueEntry{}, fmt.Errorf("valuing %s on %s: %w", l.ticker, date.Format(time.DateOnly), err)
		}

		entry.Breakdown[l.ticker] += value
		country[l.ticker] += value
	}

	for _, v := range entry.Breakdown {
		entry.TotalValue += v
	}
	return entry, nil
}

func newSeries(obs []domain.PriceObservation) series {
	sorted := slices.Clone(obs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	s := series{
		dates: make([]time.Time, 0, len(sorted)),
		opens: make([]float64, 0, len(sorted)),
	}
	for _, o := range sorted {
		d := domain.DateOnly(o.Date)
		if n := len(s.dates); n > 0 && s.dates[n-1].Equal(d) {
			s.opens[n-1] = o.Open
			continue
		}
		s.dates = append(s.dates, d)
		s.opens = append(s.opens, o.Open)
	}
	return s
}

// lastOpen returns the open of the latest observation dated in [from, to].
func (s series) lastOpen(from, to time.Time) (float64, bool) {
	if to.Before(from) {
		return 0, false
	}
	// First index with date > to; the candidate sits just before it.
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(to) })
	if i == 0 || s.dates[i-1].Before(from) {
		return 0, false
	}
	return s.opens[i-1], true
}

func unionDates(byTicker map[string]series) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, s := range byTicker {
		for _, d := range s.dates {
			seen[d] = struct{}{}
		}
	}
	dates := lo.Keys(seen)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
