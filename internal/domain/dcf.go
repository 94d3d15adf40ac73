package domain

import (
	"encoding/json"
	"strconv"
)

// ProjectionYears is the explicit projection horizon of a DCF run.
const ProjectionYears = 10

// ShortTermYears is the number of leading projection years grown at the short-term rate.
const ShortTermYears = 5

// DCFInput is the parameter set of a single DCF run. Rates are fractions (0.09 = 9%).
type DCFInput struct {
	StockPrice          float64 `json:"stockPrice"`
	SharesOutstanding   float64 `json:"sharesOutstanding"`
	ShortTermGrowthRate float64 `json:"shortTermGrowthRate"`
	LongTermGrowthRate  float64 `json:"longTermGrowthRate"`
	DiscountRate        float64 `json:"discountRate"`
	TerminalMultiple    float64 `json:"terminalMultiple"`
	StockBasedComp      float64 `json:"stockBasedComp"`
	NetCashDebt         float64 `json:"netCashDebt"`
	FreeCashFlow        float64 `json:"freeCashFlow"`
	SimpleMode          bool    `json:"simpleMode"`
	ReportedCurrency    string  `json:"reportedCurrency"`
	StockCurrency       string  `json:"stockCurrency"`
}

// ProjectionPoint is one year of a cash-flow projection.
// Terminal marks the appended exit point; Year is 0 for it.
type ProjectionPoint struct {
	Year         int     `json:"-"`
	Terminal     bool    `json:"-"`
	FCF          float64 `json:"fcf"`
	PresentValue float64 `json:"presentValue"`
}

// Label returns the year number, or "terminal" for the terminal point.
func (p ProjectionPoint) Label() string {
	if p.Terminal {
		return "terminal"
	}
	return strconv.Itoa(p.Year)
}

type projectionPointJSON struct {
	Year         any     `json:"year"`
	FCF          float64 `json:"fcf"`
	PresentValue float64 `json:"presentValue"`
}

// MarshalJSON renders the terminal point's year as the string "terminal".
func (p ProjectionPoint) MarshalJSON() ([]byte, error) {
	var year any = p.Year
	if p.Terminal {
		year = "terminal"
	}
	return json.Marshal(projectionPointJSON{Year: year, FCF: p.FCF, PresentValue: p.PresentValue})
}

// UnmarshalJSON accepts either a numeric year or "terminal".
func (p *ProjectionPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Year         json.RawMessage `json:"year"`
		FCF          float64         `json:"fcf"`
		PresentValue float64         `json:"presentValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.FCF = raw.FCF
	p.PresentValue = raw.PresentValue
	p.Terminal = false
	p.Year = 0
	if string(raw.Year) == `"terminal"` {
		p.Terminal = true
		return nil
	}
	if len(raw.Year) == 0 {
		return nil
	}
	return json.Unmarshal(raw.Year, &p.Year)
}

// DCFResult is the output of a DCF run. Projection always holds 10 yearly points followed by the terminal point.
type DCFResult struct {
	IntrinsicValuePerShare   float64           `json:"intrinsicValuePerShare"`
	TotalPresentValue        float64           `json:"totalPresentValue"`
	TotalFCF                 float64           `json:"totalFcf"`
	Projection               []ProjectionPoint `json:"projection"`
	TerminalYearFCF          float64           `json:"terminalYearFcf"`
	TerminalYearPresentValue float64           `json:"terminalYearPresentValue"`
}

// Classification places a reference value relative to a series of values.
type Classification string

const (
	ClassificationExceeds     Classification = "exceeds"
	ClassificationIsBelow     Classification = "isBelow"
	ClassificationFallsWithin Classification = "fallsWithin"
)

// AnnualFCF is a historical free cash flow figure for one fiscal year.
type AnnualFCF struct {
	FiscalYear   int     `json:"fiscalYear"`
	FreeCashFlow float64 `json:"freeCashFlow"`
}

// AnnualValue is a DCF value computed from one fiscal year's cash flow, in the stock currency.
type AnnualValue struct {
	FiscalYear int     `json:"fiscalYear"`
	DCFValue   float64 `json:"dcfValue"`
}

// BacktestPoint is one month of the aligned backtest series.
type BacktestPoint struct {
	Month       string  `json:"month"` // YYYY-MM
	DCFValue    float64 `json:"dcfValue"`
	MarketPrice float64 `json:"marketPrice"`
}

// BacktestResult is the replay of the DCF model against history, aligned to market prices.
type BacktestResult struct {
	Annual         []AnnualValue   `json:"annual"`
	Series         []BacktestPoint `json:"series"`
	Classification Classification  `json:"classification"`
}

// EPSEstimate is an analyst earnings-per-share estimate for one forecast year.
type EPSEstimate struct {
	FiscalYear int     `json:"fiscalYear"`
	HighEPS    float64 `json:"highEps"`
	AvgEPS     float64 `json:"avgEps"`
	LowEPS     float64 `json:"lowEps"`
}

// SensitivityPoint is the DCF value for one short-term growth rate (in whole percent).
type SensitivityPoint struct {
	GrowthRate int     `json:"growthRate"`
	DCFValue   float64 `json:"dcfValue"`
}

// SensitivityResult is the outcome of a growth-rate sweep.
type SensitivityResult struct {
	AnalystCAGR    float64            `json:"analystCagr"`
	StockPrice     float64            `json:"stockPrice"`
	Points         []SensitivityPoint `json:"points"`
	Classification Classification     `json:"classification"`
}
