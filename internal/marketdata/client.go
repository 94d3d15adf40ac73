// Package marketdata fetches price history, quotes, analyst estimates, financial statements
// and FX rates from an FMP-compatible HTTP API.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/domain"
)

// ClientConfig configures the provider client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	RetryMax    int
	RetryWait   time.Duration
	Concurrency int
}

// Client talks to the market data provider.
type Client struct {
	http        *resty.Client
	concurrency int
}

// NewClient creates a provider client. Rate-limited responses (HTTP 429) are retried with
// exponential backoff up to RetryMax times.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryMax).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait * 32).
		AddRetryCondition(func(r *resty.Response, _ error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		})
	if cfg.APIKey != "" {
		rc.SetQueryParam("apikey", cfg.APIKey)
	}

	return &Client{http: rc, concurrency: cfg.Concurrency}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

type historyResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"historical"`
}

// FetchHistory returns daily observations for ticker between from and to, in provider order.
func (c *Client) FetchHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.PriceObservation, error) {
	var raw historyResponse
	err := c.get(ctx, "/api/v3/historical-price-full/"+ticker, map[string]string{
		"from": from.Format(time.DateOnly),
		"to":   to.Format(time.DateOnly),
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", ticker, err)
	}

	out := make([]domain.PriceObservation, 0, len(raw.Historical))
	for _, h := range raw.Historical {
		d, err := time.Parse(time.DateOnly, h.Date)
		if err != nil {
			slog.Warn("skipping observation with invalid date", "ticker", ticker, "date", h.Date)
			continue
		}
		out = append(out, domain.PriceObservation{
			Date: d, Open: h.Open, High: h.High, Low: h.Low, Close: h.Close, Volume: h.Volume,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no history for %s: %w", ticker, domain.ErrMissingData)
	}
	return out, nil
}

// FetchHistories fetches the history of every distinct ticker concurrently. Tickers without any
// history are left out of the result.
func (c *Client) FetchHistories(ctx context.Context, tickers []string, from, to time.Time) (map[string][]domain.PriceObservation, error) {
	return fetchHistories(ctx, c.concurrency, tickers, func(ctx context.Context, ticker string) ([]domain.PriceObservation, error) {
		return c.FetchHistory(ctx, ticker, from, to)
	})
}

type historyFunc func(ctx context.Context, ticker string) ([]domain.PriceObservation, error)

func fetchHistories(ctx context.Context, limit int, tickers []string, fetch historyFunc) (map[string][]domain.PriceObservation, error) {
	unique := lo.Uniq(lo.Map(tickers, func(t string, _ int) string { return strings.ToUpper(t) }))
	results := make([][]domain.PriceObservation, len(unique))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, ticker := range unique {
		g.Go(func() error {
			obs, err := fetch(ctx, ticker)
			if errors.Is(err, domain.ErrMissingData) {
				slog.Warn("no price history", "ticker", ticker)
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]domain.PriceObservation, len(unique))
	for i, ticker := range unique {
		if results[i] != nil {
			out[ticker] = results[i]
		}
	}
	return out, nil
}

type profileResponse struct {
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	Currency          string  `json:"currency"`
	Country           string  `json:"country"`
	MktCap            float64 `json:"mktCap"`
	SharesOutstanding float64 `json:"sharesOutstanding"`
	DCF               float64 `json:"dcf"`
}

// FetchQuote returns the current price and company profile of ticker.
func (c *Client) FetchQuote(ctx context.Context, ticker string) (domain.Quote, error) {
	var raw []profileResponse
	if err := c.get(ctx, "/api/v3/profile/"+ticker, nil, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("fetching quote for %s: %w", ticker, err)
	}
	if len(raw) == 0 || raw[0].Price <= 0 {
		return domain.Quote{}, fmt.Errorf("no quote for %s: %w", ticker, domain.ErrMissingData)
	}

	p := raw[0]
	shares := p.SharesOutstanding
	if shares == 0 && p.Price > 0 {
		shares = p.MktCap / p.Price
	}
	return domain.Quote{
		Ticker:       strings.ToUpper(ticker),
		Price:        p.Price,
		Currency:     strings.ToUpper(p.Currency),
		Country:      p.Country,
		Shares:       shares,
		ReferenceDCF: p.DCF,
	}, nil
}

// FetchQuotes fetches quotes of distinct tickers concurrently, keyed by upper-cased ticker.
func (c *Client) FetchQuotes(ctx context.Context, tickers []string) (map[string]domain.Quote, error) {
	return fetchQuotes(ctx, c.concurrency, tickers, c.FetchQuote)
}

func fetchQuotes(ctx context.Context, limit int, tickers []string, fetch func(context.Context, string) (domain.Quote, error)) (map[string]domain.Quote, error) {
	unique := lo.Uniq(lo.Map(tickers, func(t string, _ int) string { return strings.ToUpper(t) }))
	results := make([]domain.Quote, len(unique))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, ticker := range unique {
		g.Go(func() error {
			q, err := fetch(ctx, ticker)
			if err != nil {
				return err
			}
			results[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return lo.KeyBy(results, func(q domain.Quote) string { return q.Ticker }), nil
}

type estimateResponse struct {
	Date             string  `json:"date"`
	EstimatedEpsHigh float64 `json:"estimatedEpsHigh"`
	EstimatedEpsAvg  float64 `json:"estimatedEpsAvg"`
	EstimatedEpsLow  float64 `json:"estimatedEpsLow"`
}

// FetchEstimates returns annual analyst EPS estimates for ticker.
func (c *Client) FetchEstimates(ctx context.Context, ticker string) ([]domain.EPSEstimate, error) {
	var raw []estimateResponse
	if err := c.get(ctx, "/api/v3/analyst-estimates/"+ticker, map[string]string{"period": "annual"}, &raw); err != nil {
		return nil, fmt.Errorf("fetching estimates for %s: %w", ticker, err)
	}

	out := make([]domain.EPSEstimate, 0, len(raw))
	for _, e := range raw {
		year, err := fiscalYear(e.Date)
		if err != nil {
			continue
		}
		out = append(out, domain.EPSEstimate{
			FiscalYear: year,
			HighEPS:    e.EstimatedEpsHigh,
			AvgEPS:     e.EstimatedEpsAvg,
			LowEPS:     e.EstimatedEpsLow,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no estimates for %s: %w", ticker, domain.ErrMissingData)
	}
	return out, nil
}

// CashFlowStatement is one annual cash flow statement.
type CashFlowStatement struct {
	FiscalYear       int
	FreeCashFlow     float64
	StockBasedComp   float64
	ReportedCurrency string
}

type cashFlowResponse struct {
	Date                   string  `json:"date"`
	CalendarYear           string  `json:"calendarYear"`
	ReportedCurrency       string  `json:"reportedCurrency"`
	FreeCashFlow           float64 `json:"freeCashFlow"`
	StockBasedCompensation float64 `json:"stockBasedCompensation"`
}

// FetchCashFlows returns up to years annual cash flow statements, newest first as the provider sends them.
func (c *Client) FetchCashFlows(ctx context.Context, ticker string, years int) ([]CashFlowStatement, error) {
	var raw []cashFlowResponse
	err := c.get(ctx, "/api/v3/cash-flow-statement/"+ticker, map[string]string{
		"period": "annual",
		"limit":  strconv.Itoa(years),
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetching cash flows for %s: %w", ticker, err)
	}

	out := make([]CashFlowStatement, 0, len(raw))
	for _, r := range raw {
		year, err := strconv.Atoi(r.CalendarYear)
		if err != nil {
			if year, err = fiscalYear(r.Date); err != nil {
				continue
			}
		}
		out = append(out, CashFlowStatement{
			FiscalYear:       year,
			FreeCashFlow:     r.FreeCashFlow,
			StockBasedComp:   r.StockBasedCompensation,
			ReportedCurrency: strings.ToUpper(r.ReportedCurrency),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no cash flow statements for %s: %w", ticker, domain.ErrMissingData)
	}
	return out, nil
}

type balanceSheetResponse struct {
	CashAndShortTermInvestments float64 `json:"cashAndShortTermInvestments"`
	TotalDebt                   float64 `json:"totalDebt"`
}

// FetchNetCash returns cash and short-term investments minus total debt from the latest
// annual balance sheet. Negative values mean net debt.
func (c *Client) FetchNetCash(ctx context.Context, ticker string) (float64, error) {
	var raw []balanceSheetResponse
	err := c.get(ctx, "/api/v3/balance-sheet-statement/"+ticker, map[string]string{
		"period": "annual",
		"limit":  "1",
	}, &raw)
	if err != nil {
		return 0, fmt.Errorf("fetching balance sheet for %s: %w", ticker, err)
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("no balance sheet for %s: %w", ticker, domain.ErrMissingData)
	}
	return raw[0].CashAndShortTermInvestments - raw[0].TotalDebt, nil
}

type fxResponse struct {
	Ticker string  `json:"ticker"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// FetchRates returns the provider's FX pairs at their bid/ask midpoint.
func (c *Client) FetchRates(ctx context.Context) ([]currency.Rate, error) {
	var raw []fxResponse
	if err := c.get(ctx, "/api/v3/fx", nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching fx rates: %w", err)
	}

	out := make([]currency.Rate, 0, len(raw))
	for _, r := range raw {
		from, to, ok := strings.Cut(r.Ticker, "/")
		if !ok {
			continue
		}
		mid := r.Bid
		if r.Ask > 0 {
			mid = (r.Bid + r.Ask) / 2
		}
		out = append(out, currency.Rate{From: from, To: to, Rate: mid})
	}
	return out, nil
}

func fiscalYear(date string) (int, error) {
	if len(date) < 4 {
		return 0, fmt.Errorf("invalid date %q", date)
	}
	return strconv.Atoi(date[:4])
}
