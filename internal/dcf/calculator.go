// Package dcf projects free cash flow ten years forward, discounts it to present value and
// derives an intrinsic value per share.
package dcf

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/stats"
)

// Validate rejects parameter sets that would make Calculate divide by zero or produce NaN/Inf.
func Validate(in domain.DCFInput) error {
	if !stats.Finite(in.StockPrice, in.SharesOutstanding, in.ShortTermGrowthRate, in.LongTermGrowthRate,
		in.DiscountRate, in.TerminalMultiple, in.StockBasedComp, in.NetCashDebt, in.FreeCashFlow) {
		return fmt.Errorf("dcf parameters must be finite: %w", domain.ErrInvalidInput)
	}
	if in.SharesOutstanding <= 0 {
		return fmt.Errorf("shares outstanding must be positive, got %v: %w", in.SharesOutstanding, domain.ErrInvalidInput)
	}
	if in.DiscountRate <= -1 {
		return fmt.Errorf("discount rate must be greater than -100%%, got %v: %w", in.DiscountRate, domain.ErrInvalidInput)
	}
	return nil
}

// Calculate runs the projection. Growth rates are not clamped: a rate below -100% flips the
// sign of every following cash flow. Callers must Validate first; shares outstanding of zero
// yields an infinite value per share.
func Calculate(in domain.DCFInput) domain.DCFResult {
	fcf := in.FreeCashFlow
	if !in.SimpleMode {
		fcf -= in.StockBasedComp
	}

	projection := make([]domain.ProjectionPoint, 0, domain.ProjectionYears+1)
	for year := 1; year <= domain.ProjectionYears; year++ {
		rate := in.LongTermGrowthRate
		if year <= domain.ShortTermYears {
			rate = in.ShortTermGrowthRate
		}
		fcf *= 1 + rate
		projection = append(projection, domain.ProjectionPoint{
			Year:         year,
			FCF:          fcf,
			PresentValue: fcf / math.Pow(1+in.DiscountRate, float64(year)),
		})
	}

	last := projection[len(projection)-1]
	terminal := domain.ProjectionPoint{
		Terminal:     true,
		FCF:          last.FCF * in.TerminalMultiple,
		PresentValue: last.PresentValue * in.TerminalMultiple,
	}
	projection = append(projection, terminal)

	totalFCF := stats.Sum(lo.Map(projection, func(p domain.ProjectionPoint, _ int) float64 { return p.FCF }))
	totalPV := stats.Sum(lo.Map(projection, func(p domain.ProjectionPoint, _ int) float64 { return p.PresentValue })) + in.NetCashDebt

	return domain.DCFResult{
		IntrinsicValuePerShare:   totalPV / in.SharesOutstanding,
		TotalPresentValue:        totalPV,
		TotalFCF:                 totalFCF,
		Projection:               projection,
		TerminalYearFCF:          terminal.FCF,
		TerminalYearPresentValue: terminal.PresentValue,
	}
}

// ValidateAndCalculate validates the input before calculating.
func ValidateAndCalculate(in domain.DCFInput) (domain.DCFResult, error) {
	if err := Validate(in); err != nil {
		return domain.DCFResult{}, err
	}
	return Calculate(in), nil
}

// MarginOfSafety is the gap between intrinsic value and market price as a percentage of intrinsic value.
func MarginOfSafety(intrinsic, price float64) float64 {
	if intrinsic == 0 {
		return 0
	}
	return (intrinsic - price) / intrinsic * 100
}
