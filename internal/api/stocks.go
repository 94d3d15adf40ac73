package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/valuation"
)

// parseOverrides reads optional model assumptions from the query string.
// Rates are fractions, e.g. discountRate=0.09.
func parseOverrides(q url.Values) (valuation.Overrides, error) {
	var ov valuation.Overrides
	floats := []struct {
		key string
		dst **float64
	}{
		{"shortTermGrowth", &ov.ShortTermGrowth},
		{"longTermGrowth", &ov.LongTermGrowth},
		{"discountRate", &ov.DiscountRate},
		{"terminalMultiple", &ov.TerminalMultiple},
	}
	for _, f := range floats {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return valuation.Overrides{}, fmt.Errorf("%s: %q is not a number: %w", f.key, v, domain.ErrInvalidInput)
		}
		*f.dst = &n
	}
	if v := q.Get("simpleMode"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return valuation.Overrides{}, fmt.Errorf("simpleMode: %q is not a boolean: %w", v, domain.ErrInvalidInput)
		}
		ov.SimpleMode = &b
	}
	return ov, nil
}

func (h *Handler) overrides(w http.ResponseWriter, r *http.Request) (valuation.Overrides, bool) {
	ov, err := parseOverrides(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return valuation.Overrides{}, false
	}
	return ov, true
}

// GetDCF handles GET /api/v1/stocks/{ticker}/dcf.
func (h *Handler) GetDCF(w http.ResponseWriter, r *http.Request) {
	ov, ok := h.overrides(w, r)
	if !ok {
		return
	}
	out, err := h.valuations.DCF(r.Context(), r.PathValue("ticker"), ov)
	writeOutcome(w, "dcf", out, err)
}

// GetBacktest handles GET /api/v1/stocks/{ticker}/backtest.
func (h *Handler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	ov, ok := h.overrides(w, r)
	if !ok {
		return
	}

	years := h.defaultYears
	if v := r.URL.Query().Get("years"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "years must be a positive integer")
			return
		}
		years = n
	}

	out, err := h.valuations.Backtest(r.Context(), r.PathValue("ticker"), years, ov)
	writeOutcome(w, "backtest", out, err)
}

// GetSensitivity handles GET /api/v1/stocks/{ticker}/sensitivity.
func (h *Handler) GetSensitivity(w http.ResponseWriter, r *http.Request) {
	ov, ok := h.overrides(w, r)
	if !ok {
		return
	}
	out, err := h.valuations.Sensitivity(r.Context(), r.PathValue("ticker"), ov)
	writeOutcome(w, "sensitivity", out, err)
}
