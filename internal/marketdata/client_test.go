package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/folio/internal/domain"
)

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{
		BaseURL:     url,
		APIKey:      "test-key",
		Timeout:     2 * time.Second,
		RetryMax:    2,
		RetryWait:   5 * time.Millisecond,
		Concurrency: 2,
	})
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func TestFetchHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/historical-price-full/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Error("missing apikey query parameter")
		}
		if r.URL.Query().Get("from") != "2024-01-01" || r.URL.Query().Get("to") != "2024-01-31" {
			t.Errorf("unexpected range %s", r.URL.RawQuery)
		}
		writeJSON(w, `{"symbol":"AAPL","historical":[
			{"date":"2024-01-03","open":102,"high":105,"low":101,"close":104,"volume":1000},
			{"date":"bad","open":1},
			{"date":"2024-01-02","open":100,"high":103,"low":99,"close":101,"volume":900}
		]}`)
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL).FetchHistory(context.Background(), "AAPL",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	if obs[0].Open != 102 || obs[0].Close != 104 {
		t.Errorf("obs[0] = %+v", obs[0])
	}
	if !obs[1].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("obs[1].Date = %v", obs[1].Date)
	}
}

func TestFetchHistoryEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchHistory(context.Background(), "NONE", time.Now(), time.Now())
	if !errors.Is(err, domain.ErrMissingData) {
		t.Errorf("error = %v, want ErrMissingData", err)
	}
}

func TestRetryOn429(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, `[{"symbol":"AAPL","price":190,"currency":"usd","country":"US","mktCap":1900,"dcf":170}]`)
	}))
	defer server.Close()

	q, err := newTestClient(server.URL).FetchQuote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
	if q.Ticker != "AAPL" || q.Currency != "USD" || q.Shares != 10 || q.ReferenceDCF != 170 {
		t.Errorf("quote = %+v", q)
	}
}

func TestHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchQuote(context.Background(), "AAPL")
	if err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("error = %v, want HTTP 500", err)
	}
	if errors.Is(err, domain.ErrMissingData) {
		t.Error("provider failure must not be reported as missing data")
	}
}

func TestFetchEstimates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("period") != "annual" {
			t.Errorf("period = %q", r.URL.Query().Get("period"))
		}
		writeJSON(w, `[
			{"date":"2027-09-30","estimatedEpsHigh":9,"estimatedEpsAvg":8,"estimatedEpsLow":7},
			{"date":"2026-09-30","estimatedEpsHigh":8,"estimatedEpsAvg":7,"estimatedEpsLow":6}
		]`)
	}))
	defer server.Close()

	est, err := newTestClient(server.URL).FetchEstimates(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(est) != 2 || est[0].FiscalYear != 2027 || est[1].HighEPS != 8 {
		t.Errorf("estimates = %+v", est)
	}
}

func TestFetchCashFlows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "3" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		writeJSON(w, `[
			{"date":"2023-09-30","calendarYear":"2023","reportedCurrency":"usd","freeCashFlow":100,"stockBasedCompensation":10},
			{"date":"2022-09-30","reportedCurrency":"USD","freeCashFlow":90,"stockBasedCompensation":9}
		]`)
	}))
	defer server.Close()

	cf, err := newTestClient(server.URL).FetchCashFlows(context.Background(), "AAPL", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cf) != 2 {
		t.Fatalf("got %d statements, want 2", len(cf))
	}
	if cf[0].FiscalYear != 2023 || cf[0].ReportedCurrency != "USD" || cf[0].StockBasedComp != 10 {
		t.Errorf("cf[0] = %+v", cf[0])
	}
	if cf[1].FiscalYear != 2022 {
		t.Errorf("cf[1].FiscalYear = %d, want 2022 from date", cf[1].FiscalYear)
	}
}

func TestFetchNetCash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"cashAndShortTermInvestments":50,"totalDebt":80}]`)
	}))
	defer server.Close()

	net, err := newTestClient(server.URL).FetchNetCash(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if net != -30 {
		t.Errorf("net cash = %v, want -30", net)
	}
}

func TestFetchRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"ticker":"EUR/USD","bid":1.08,"ask":1.10},{"ticker":"broken","bid":1}]`)
	}))
	defer server.Close()

	rates, err := newTestClient(server.URL).FetchRates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rates) != 1 {
		t.Fatalf("got %d rates, want 1", len(rates))
	}
	if rates[0].From != "EUR" || rates[0].To != "USD" || rates[0].Rate < 1.0899 || rates[0].Rate > 1.0901 {
		t.Errorf("rate = %+v", rates[0])
	}
}

func TestFetchHistories(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if strings.HasSuffix(r.URL.Path, "/EMPTY") {
			writeJSON(w, `{"historical":[]}`)
			return
		}
		writeJSON(w, `{"historical":[{"date":"2024-01-02","open":1,"close":2}]}`)
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).FetchHistories(context.Background(),
		[]string{"AAPL", "msft", "aapl", "EMPTY"}, time.Now(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requests.Load() != 3 {
		t.Errorf("requests = %d, want 3 distinct tickers", requests.Load())
	}
	if len(got) != 2 || got["AAPL"] == nil || got["MSFT"] == nil {
		t.Errorf("histories = %v", got)
	}
}

func TestFetchHistoriesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchHistories(context.Background(), []string{"AAPL"}, time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
}
