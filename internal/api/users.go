package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/report"
)

// GetHistory handles GET /api/v1/users/{user}/portfolio/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	out, err := h.portfolios.History(r.Context(), r.PathValue("user"))
	writeOutcome(w, "history", out, err)
}

// GetSnapshot handles GET /api/v1/users/{user}/portfolio/snapshot.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	out, err := h.portfolios.Snapshot(r.Context(), r.PathValue("user"))
	writeOutcome(w, "snapshot", out, err)
}

// GetTarget handles GET /api/v1/users/{user}/portfolio/target.
func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	out, err := h.portfolios.Target(r.Context(), r.PathValue("user"))
	writeOutcome(w, "target", out, err)
}

// GetLatestReport handles GET /api/v1/users/{user}/reports/latest.
func (h *Handler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	s, err := h.reports.GetLatest(r.Context(), r.PathValue("user"))
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no reports found")
			return
		}
		writeServiceError(w, "latest report", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetReportByDate handles GET /api/v1/users/{user}/reports/{date}.
func (h *Handler) GetReportByDate(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, r)
	if !ok {
		return
	}

	s, err := h.reports.GetByDate(r.Context(), r.PathValue("user"), date)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found for date")
			return
		}
		writeServiceError(w, "report by date", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListReports handles GET /api/v1/users/{user}/reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.List(r.Context(), r.PathValue("user"), parseLimit(r))
	if err != nil {
		writeServiceError(w, "list reports", err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// GenerateReport handles POST /api/v1/users/{user}/reports/generate.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Generate(r.Context(), r.PathValue("user"), time.Now())
	if err != nil {
		slog.Error("failed to generate report", "user", r.PathValue("user"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type lotRequest struct {
	Ticker        string  `json:"ticker"`
	PurchaseDate  string  `json:"purchaseDate"`
	PurchasePrice float64 `json:"purchasePrice"`
	Quantity      float64 `json:"quantity"`
	Currency      string  `json:"currency"`
	Country       string  `json:"country"`
}

// CreateLot handles POST /api/v1/users/{user}/lots.
func (h *Handler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req lotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := time.Parse(time.DateOnly, req.PurchaseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchaseDate, expected YYYY-MM-DD")
		return
	}

	created, err := h.lots.Create(r.Context(), domain.Lot{
		UserID:        r.PathValue("user"),
		Ticker:        req.Ticker,
		PurchaseDate:  date,
		PurchasePrice: req.PurchasePrice,
		Quantity:      req.Quantity,
		Currency:      req.Currency,
		Country:       req.Country,
	})
	if err != nil {
		writeServiceError(w, "create lot", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// DeleteLot handles DELETE /api/v1/users/{user}/lots/{id}.
func (h *Handler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	if err := h.lots.Delete(r.Context(), r.PathValue("user"), r.PathValue("id")); err != nil {
		writeServiceError(w, "delete lot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type targetRequest struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
}

// CreateTarget handles POST /api/v1/users/{user}/targets.
func (h *Handler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.lots.CreateTarget(r.Context(), domain.PriceTarget{
		UserID: r.PathValue("user"),
		Ticker: req.Ticker,
		Price:  req.Price,
	})
	if err != nil {
		writeServiceError(w, "create target", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
