package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/lot"
	"github.com/mtlprog/folio/internal/report"
	"github.com/mtlprog/folio/internal/valuation"
)

// Valuations defines the stock valuation operations served by the API.
type Valuations interface {
	DCF(ctx context.Context, ticker string, ov valuation.Overrides) (domain.Outcome[valuation.Report], error)
	Backtest(ctx context.Context, ticker string, years int, ov valuation.Overrides) (domain.Outcome[domain.BacktestResult], error)
	Sensitivity(ctx context.Context, ticker string, ov valuation.Overrides) (domain.Outcome[domain.SensitivityResult], error)
}

// Portfolios defines the portfolio views served by the API.
type Portfolios interface {
	History(ctx context.Context, userID string) (domain.Outcome[[]domain.DateValueEntry], error)
	Snapshot(ctx context.Context, userID string) (domain.Outcome[[]domain.SnapshotGroup], error)
	Target(ctx context.Context, userID string) (domain.Outcome[domain.PortfolioTarget], error)
}

// Reports defines the report operations served by the API.
type Reports interface {
	Generate(ctx context.Context, userID string, date time.Time) (report.PortfolioReport, error)
	GetLatest(ctx context.Context, userID string) (*report.Stored, error)
	GetByDate(ctx context.Context, userID string, date time.Time) (*report.Stored, error)
	List(ctx context.Context, userID string, limit int) ([]report.Stored, error)
}

// Lots defines the lot and price target writes served by the API.
type Lots interface {
	Create(ctx context.Context, l domain.Lot) (domain.Lot, error)
	Delete(ctx context.Context, userID, id string) error
	CreateTarget(ctx context.Context, t domain.PriceTarget) (domain.PriceTarget, error)
}

// Handler provides HTTP endpoints for the folio API.
type Handler struct {
	valuations   Valuations
	portfolios   Portfolios
	reports      Reports
	lots         Lots
	defaultYears int
}

// NewHandler creates a new API handler. backtestYears is used when a backtest request
// does not name a horizon.
func NewHandler(valuations Valuations, portfolios Portfolios, reports Reports, lots Lots, backtestYears int) *Handler {
	return &Handler{
		valuations:   valuations,
		portfolios:   portfolios,
		reports:      reports,
		lots:         lots,
		defaultYears: backtestYears,
	}
}

// writeServiceError maps service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnresolvedCurrencyPair):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, report.ErrNotFound), errors.Is(err, lot.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeOutcome writes a service outcome. Empty and pending outcomes are regular 200 responses.
func writeOutcome[T any](w http.ResponseWriter, op string, out domain.Outcome[T], err error) {
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := time.Parse(time.DateOnly, r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func parseLimit(r *http.Request) int {
	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
