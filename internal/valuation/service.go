// Package valuation gathers market data for a ticker and runs the DCF, backtest and
// sensitivity engines over it.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/backtest"
	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/dcf"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/marketdata"
	"github.com/mtlprog/folio/internal/sensitivity"
)

// QuoteProvider returns the current quote of a ticker.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, ticker string) (domain.Quote, error)
}

// HistoryProvider returns daily price observations of a ticker.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.PriceObservation, error)
}

// EstimateProvider returns analyst EPS estimates of a ticker.
type EstimateProvider interface {
	FetchEstimates(ctx context.Context, ticker string) ([]domain.EPSEstimate, error)
}

// FundamentalsProvider returns financial statement figures of a ticker.
type FundamentalsProvider interface {
	FetchCashFlows(ctx context.Context, ticker string, years int) ([]marketdata.CashFlowStatement, error)
	FetchNetCash(ctx context.Context, ticker string) (float64, error)
}

// Provider is everything the service reads from the market data source.
type Provider interface {
	QuoteProvider
	HistoryProvider
	EstimateProvider
	FundamentalsProvider
}

// Params are the model assumptions of a run. Rates are fractions.
type Params struct {
	ShortTermGrowth  float64 `json:"shortTermGrowth"`
	LongTermGrowth   float64 `json:"longTermGrowth"`
	DiscountRate     float64 `json:"discountRate"`
	TerminalMultiple float64 `json:"terminalMultiple"`
	SimpleMode       bool    `json:"simpleMode"`
}

// Overrides replace individual defaults for one request. Nil fields keep the default.
type Overrides struct {
	ShortTermGrowth  *float64
	LongTermGrowth   *float64
	DiscountRate     *float64
	TerminalMultiple *float64
	SimpleMode       *bool
}

// Report is the result of a DCF valuation of one ticker.
type Report struct {
	Ticker         string           `json:"ticker"`
	Input          domain.DCFInput  `json:"input"`
	Result         domain.DCFResult `json:"result"`
	IntrinsicValue float64          `json:"intrinsicValue"` // per share, in the stock currency
	MarginOfSafety float64          `json:"marginOfSafety"`
	ReferenceDCF   float64          `json:"referenceDcf,omitempty"`
	GrowthSource   string           `json:"growthSource"`
}

// Service runs valuations.
type Service struct {
	provider Provider
	conv     currency.Converter
	defaults Params
	now      func() time.Time
}

// NewService creates a new valuation service.
func NewService(provider Provider, conv currency.Converter, defaults Params) *Service {
	return &Service{provider: provider, conv: conv, defaults: defaults, now: time.Now}
}

// Defaults returns the assumptions used when a request overrides nothing.
func (s *Service) Defaults() Params {
	return s.defaults
}

func (s *Service) params(ov Overrides) Params {
	p := s.defaults
	if ov.ShortTermGrowth != nil {
		p.ShortTermGrowth = *ov.ShortTermGrowth
	}
	if ov.LongTermGrowth != nil {
		p.LongTermGrowth = *ov.LongTermGrowth
	}
	if ov.DiscountRate != nil {
		p.DiscountRate = *ov.DiscountRate
	}
	if ov.TerminalMultiple != nil {
		p.TerminalMultiple = *ov.TerminalMultiple
	}
	if ov.SimpleMode != nil {
		p.SimpleMode = *ov.SimpleMode
	}
	return p
}

// DCF values ticker from its latest annual free cash flow. Without a short-term growth
// override the analyst EPS CAGR is used when available.
func (s *Service) DCF(ctx context.Context, ticker string, ov Overrides) (domain.Outcome[Report], error) {
	ticker = strings.ToUpper(ticker)
	p := s.params(ov)

	in, quote, _, err := s.template(ctx, ticker, p, 1)
	if err != nil {
		return emptyOr[Report](err)
	}

	source := "default"
	if ov.ShortTermGrowth != nil {
		source = "override"
	} else if cagr, err := s.analystCAGR(ctx, ticker); err == nil {
		in.ShortTermGrowthRate = cagr / 100
		source = "analyst"
	} else {
		slog.Debug("analyst growth unavailable, using default", "ticker", ticker, "error", err)
	}

	res, err := dcf.ValidateAndCalculate(in)
	if err != nil {
		return domain.Outcome[Report]{}, fmt.Errorf("valuing %s: %w", ticker, err)
	}

	value, err := s.conv.Convert(res.IntrinsicValuePerShare, in.ReportedCurrency, in.StockCurrency)
	if err != nil {
		return domain.Outcome[Report]{}, fmt.Errorf("valuing %s: %w", ticker, err)
	}

	return domain.Ready(Report{
		Ticker:         ticker,
		Input:          in,
		Result:         res,
		IntrinsicValue: value,
		MarginOfSafety: dcf.MarginOfSafety(value, in.StockPrice),
		ReferenceDCF:   quote.ReferenceDCF,
		GrowthSource:   source,
	}), nil
}

// Backtest replays the model over the last years of annual cash flows.
func (s *Service) Backtest(ctx context.Context, ticker string, years int, ov Overrides) (domain.Outcome[domain.BacktestResult], error) {
	ticker = strings.ToUpper(ticker)
	if years <= 0 {
		return domain.Outcome[domain.BacktestResult]{}, fmt.Errorf("years must be positive, got %d: %w", years, domain.ErrInvalidInput)
	}

	in, _, statements, err := s.template(ctx, ticker, s.params(ov), years)
	if err != nil {
		return emptyOr[domain.BacktestResult](err)
	}
	history := lo.Map(statements, func(c marketdata.CashFlowStatement, _ int) domain.AnnualFCF {
		return domain.AnnualFCF{FiscalYear: c.FiscalYear, FreeCashFlow: c.FreeCashFlow}
	})

	oldest := lo.MinBy(history, func(a, b domain.AnnualFCF) bool { return a.FiscalYear < b.FiscalYear })
	from := time.Date(oldest.FiscalYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	prices, err := s.provider.FetchHistory(ctx, ticker, from, s.now())
	if err != nil {
		return emptyOr[domain.BacktestResult](err)
	}

	res, err := backtest.Run(in, history, prices, s.conv)
	if err != nil {
		return emptyOr[domain.BacktestResult](fmt.Errorf("backtesting %s: %w", ticker, err))
	}
	return domain.Ready(res), nil
}

// Sensitivity sweeps the short-term growth rate around the analyst EPS CAGR.
func (s *Service) Sensitivity(ctx context.Context, ticker string, ov Overrides) (domain.Outcome[domain.SensitivityResult], error) {
	ticker = strings.ToUpper(ticker)

	in, _, _, err := s.template(ctx, ticker, s.params(ov), 1)
	if err != nil {
		return emptyOr[domain.SensitivityResult](err)
	}

	estimates, err := s.forwardEstimates(ctx, ticker)
	if err != nil {
		return emptyOr[domain.SensitivityResult](err)
	}

	res, err := sensitivity.Sweep(in, estimates, s.conv)
	if err != nil {
		return domain.Outcome[domain.SensitivityResult]{}, fmt.Errorf("sweeping %s: %w", ticker, err)
	}
	return domain.Ready(res), nil
}

// template assembles the DCF input from the quote, the latest cash flow statement and the
// balance sheet. It also returns the cash flow statements it fetched, in provider order.
func (s *Service) template(ctx context.Context, ticker string, p Params, years int) (domain.DCFInput, domain.Quote, []marketdata.CashFlowStatement, error) {
	quote, err := s.provider.FetchQuote(ctx, ticker)
	if err != nil {
		return domain.DCFInput{}, domain.Quote{}, nil, err
	}

	statements, err := s.provider.FetchCashFlows(ctx, ticker, max(years, 1))
	if err != nil {
		return domain.DCFInput{}, domain.Quote{}, nil, err
	}
	latest := lo.MaxBy(statements, func(a, b marketdata.CashFlowStatement) bool { return a.FiscalYear > b.FiscalYear })

	netCash, err := s.provider.FetchNetCash(ctx, ticker)
	if errors.Is(err, domain.ErrMissingData) {
		slog.Warn("no balance sheet, assuming zero net cash", "ticker", ticker)
		netCash = 0
	} else if err != nil {
		return domain.DCFInput{}, domain.Quote{}, nil, err
	}

	reported := latest.ReportedCurrency
	if reported == "" {
		reported = quote.Currency
	}

	return domain.DCFInput{
		StockPrice:          quote.Price,
		SharesOutstanding:   quote.Shares,
		ShortTermGrowthRate: p.ShortTermGrowth,
		LongTermGrowthRate:  p.LongTermGrowth,
		DiscountRate:        p.DiscountRate,
		TerminalMultiple:    p.TerminalMultiple,
		StockBasedComp:      latest.StockBasedComp,
		NetCashDebt:         netCash,
		FreeCashFlow:        latest.FreeCashFlow,
		SimpleMode:          p.SimpleMode,
		ReportedCurrency:    reported,
		StockCurrency:       quote.Currency,
	}, quote, statements, nil
}

// forwardEstimates drops estimates for fiscal years that have already ended.
func (s *Service) forwardEstimates(ctx context.Context, ticker string) ([]domain.EPSEstimate, error) {
	estimates, err := s.provider.FetchEstimates(ctx, ticker)
	if err != nil {
		return nil, err
	}
	year := s.now().Year()
	forward := lo.Filter(estimates, func(e domain.EPSEstimate, _ int) bool { return e.FiscalYear >= year })
	if len(forward) < sensitivity.EstimateYears {
		return nil, fmt.Errorf("only %d forward estimates for %s: %w", len(forward), ticker, domain.ErrMissingData)
	}
	return forward, nil
}

func (s *Service) analystCAGR(ctx context.Context, ticker string) (float64, error) {
	estimates, err := s.forwardEstimates(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return sensitivity.AnalystCAGR(estimates)
}

// emptyOr turns missing upstream data into an empty outcome and passes other errors through.
func emptyOr[T any](err error) (domain.Outcome[T], error) {
	if errors.Is(err, domain.ErrMissingData) {
		return domain.Empty[T](err.Error()), nil
	}
	return domain.Outcome[T]{}, err
}
