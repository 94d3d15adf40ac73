// Package sensitivity sweeps the short-term growth rate of a DCF run around the growth
// implied by analyst earnings estimates.
package sensitivity

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/dcf"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/stats"
)

const (
	// EstimateYears is the number of forecast years the analyst CAGR spans.
	EstimateYears = 5

	minRate      = -5
	minUpperRate = 15
	rateMargin   = 5
)

// AnalystCAGR is the compound growth of the high EPS estimate between the nearest and the
// fifth forecast year, in percent.
func AnalystCAGR(estimates []domain.EPSEstimate) (float64, error) {
	if len(estimates) < EstimateYears {
		return 0, fmt.Errorf("need %d EPS estimates, got %d: %w", EstimateYears, len(estimates), domain.ErrInvalidInput)
	}

	sorted := slices.Clone(estimates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FiscalYear < sorted[j].FiscalYear })

	first, fifth := sorted[0].HighEPS, sorted[EstimateYears-1].HighEPS
	if first <= 0 {
		return 0, fmt.Errorf("nearest high EPS estimate %v is not positive: %w", first, domain.ErrInvalidInput)
	}

	cagr := stats.CAGR(first, fifth, EstimateYears)
	if !stats.Finite(cagr) {
		return 0, fmt.Errorf("analyst CAGR from %v to %v is undefined: %w", first, fifth, domain.ErrInvalidInput)
	}
	return cagr, nil
}

// Rates returns the integer growth rates, in percent, swept for a given analyst CAGR.
func Rates(cagr float64) []int {
	upper := int(math.Floor(math.Max(cagr+rateMargin, minUpperRate)))
	return lo.RangeFrom(minRate, upper-minRate+1)
}

// Sweep runs the template once per growth rate and compares the stock price against the values.
func Sweep(tmpl domain.DCFInput, estimates []domain.EPSEstimate, conv currency.Converter) (domain.SensitivityResult, error) {
	cagr, err := AnalystCAGR(estimates)
	if err != nil {
		return domain.SensitivityResult{}, err
	}
	if err := dcf.Validate(tmpl); err != nil {
		return domain.SensitivityResult{}, err
	}

	rates := Rates(cagr)
	points := make([]domain.SensitivityPoint, 0, len(rates))
	for _, rate := range rates {
		in := tmpl
		in.ShortTermGrowthRate = float64(rate) / 100

		res := dcf.Calculate(in)
		value, err := conv.Convert(res.IntrinsicValuePerShare, in.ReportedCurrency, in.StockCurrency)
		if err != nil {
			return domain.SensitivityResult{}, fmt.Errorf("converting value at %d%% growth: %w", rate, err)
		}
		points = append(points, domain.SensitivityPoint{GrowthRate: rate, DCFValue: value})
	}

	return domain.SensitivityResult{
		AnalystCAGR:    cagr,
		StockPrice:     tmpl.StockPrice,
		Points:         points,
		Classification: Classify(tmpl.StockPrice, points),
	}, nil
}

// Classify places the price above every swept value, below every value, or inside the range.
func Classify(price float64, points []domain.SensitivityPoint) domain.Classification {
	if lo.EveryBy(points, func(p domain.SensitivityPoint) bool { return price > p.DCFValue }) {
		return domain.ClassificationExceeds
	}
	if lo.EveryBy(points, func(p domain.SensitivityPoint) bool { return price < p.DCFValue }) {
		return domain.ClassificationIsBelow
	}
	return domain.ClassificationFallsWithin
}
