// Package backtest replays the DCF model over historical free cash flows and lines the
// resulting values up against monthly market prices.
package backtest

import (
	"fmt"
	"slices"
	"sort"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/dcf"
	"github.com/mtlprog/folio/internal/domain"
)

const monthLayout = "2006-01"

// Run values every fiscal year of history with the template parameters and aligns the values
// with the first market price of each month.
func Run(tmpl domain.DCFInput, history []domain.AnnualFCF, prices []domain.PriceObservation, conv currency.Converter) (domain.BacktestResult, error) {
	if len(history) == 0 {
		return domain.BacktestResult{}, fmt.Errorf("no cash flow history: %w", domain.ErrMissingData)
	}

	annual, err := AnnualValues(tmpl, history, conv)
	if err != nil {
		return domain.BacktestResult{}, err
	}

	series := Align(ExpandMonthly(annual), MonthlyPrices(prices))
	if len(series) == 0 {
		return domain.BacktestResult{}, fmt.Errorf("no market prices overlap the backtest period: %w", domain.ErrMissingData)
	}

	return domain.BacktestResult{
		Annual:         annual,
		Series:         series,
		Classification: Classify(series),
	}, nil
}

// AnnualValues runs one DCF per fiscal year, oldest first, converted into the stock currency.
func AnnualValues(tmpl domain.DCFInput, history []domain.AnnualFCF, conv currency.Converter) ([]domain.AnnualValue, error) {
	sorted := slices.Clone(history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FiscalYear < sorted[j].FiscalYear })

	out := make([]domain.AnnualValue, 0, len(sorted))
	for _, h := range sorted {
		in := tmpl
		in.FreeCashFlow = h.FreeCashFlow

		res, err := dcf.ValidateAndCalculate(in)
		if err != nil {
			return nil, fmt.Errorf("valuing fiscal year %d: %w", h.FiscalYear, err)
		}

		value, err := conv.Convert(res.IntrinsicValuePerShare, in.ReportedCurrency, in.StockCurrency)
		if err != nil {
			return nil, fmt.Errorf("converting fiscal year %d value: %w", h.FiscalYear, err)
		}

		out = append(out, domain.AnnualValue{FiscalYear: h.FiscalYear, DCFValue: value})
	}
	return out, nil
}

// ExpandMonthly maps every month of each fiscal year to that year's value.
func ExpandMonthly(annual []domain.AnnualValue) map[string]float64 {
	out := make(map[string]float64, len(annual)*12)
	for _, a := range annual {
		for m := 1; m <= 12; m++ {
			out[fmt.Sprintf("%04d-%02d", a.FiscalYear, m)] = a.DCFValue
		}
	}
	return out
}

// MonthlyPrices keeps the open of the earliest observation in each calendar month, the same
// price field the breakdown engine values lots at.
func MonthlyPrices(prices []domain.PriceObservation) map[string]float64 {
	sorted := slices.Clone(prices)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make(map[string]float64)
	for _, p := range sorted {
		key := p.Date.UTC().Format(monthLayout)
		if _, seen := out[key]; !seen {
			out[key] = p.Open
		}
	}
	return out
}

// Align walks the backtest months in order and pairs each with that month's price, carrying the
// previous price forward when a month has none. Months before the first price are dropped.
func Align(values map[string]float64, prices map[string]float64) []domain.BacktestPoint {
	months := lo.Keys(values)
	sort.Strings(months)

	var (
		out     []domain.BacktestPoint
		last    float64
		hasLast bool
	)
	for _, month := range months {
		if p, ok := prices[month]; ok {
			last, hasLast = p, true
		}
		if !hasLast {
			continue
		}
		out = append(out, domain.BacktestPoint{Month: month, DCFValue: values[month], MarketPrice: last})
	}
	return out
}

// Classify reports whether the DCF value stayed at or above the price every month, at or below
// it every month, or crossed it.
func Classify(series []domain.BacktestPoint) domain.Classification {
	if lo.EveryBy(series, func(p domain.BacktestPoint) bool { return p.DCFValue >= p.MarketPrice }) {
		return domain.ClassificationExceeds
	}
	if lo.EveryBy(series, func(p domain.BacktestPoint) bool { return p.DCFValue <= p.MarketPrice }) {
		return domain.ClassificationIsBelow
	}
	return domain.ClassificationFallsWithin
}
