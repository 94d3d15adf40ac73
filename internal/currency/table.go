package currency

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/mtlprog/folio/internal/domain"
)

// Converter converts an amount between ISO 4217 currency codes.
type Converter interface {
	Convert(amount float64, from, to string) (float64, error)
}

// Rate is the price of one unit of From expressed in To.
type Rate struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

type pair struct {
	from, to string
}

// RateTable is an immutable Converter over a fixed set of rates.
type RateTable struct {
	rates map[pair]float64
}

// NewRateTable builds a table from rates. Codes must be known ISO 4217 currencies and rates
// finite and positive. The inverse of every pair is added unless it is given explicitly.
func NewRateTable(rates []Rate) (*RateTable, error) {
	t := &RateTable{rates: make(map[pair]float64, len(rates)*2)}
	explicit := make(map[pair]bool, len(rates))

	for _, r := range rates {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		from, to := normalize(r.From), normalize(r.To)
		if from == to {
			continue
		}

		t.rates[pair{from, to}] = r.Rate
		explicit[pair{from, to}] = true
		if inv := (pair{to, from}); !explicit[inv] {
			t.rates[inv] = 1 / r.Rate
		}
	}

	return t, nil
}

// MustRateTable is NewRateTable that panics on invalid input. Intended for static tables and tests.
func MustRateTable(rates ...Rate) *RateTable {
	t, err := NewRateTable(rates)
	if err != nil {
		panic(err)
	}
	return t
}

// Convert returns amount unchanged when from == to, otherwise multiplies it by the (from, to) rate.
func (t *RateTable) Convert(amount float64, from, to string) (float64, error) {
	from, to = normalize(from), normalize(to)
	if from == to {
		return amount, nil
	}
	rate, ok := t.Lookup(from, to)
	if !ok {
		return 0, fmt.Errorf("converting %s to %s: %w", from, to, domain.ErrUnresolvedCurrencyPair)
	}
	return amount * rate, nil
}

// Lookup returns the rate for a pair and whether it is present.
func (t *RateTable) Lookup(from, to string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	rate, ok := t.rates[pair{normalize(from), normalize(to)}]
	return rate, ok
}

// Len returns the number of directed pairs in the table.
func (t *RateTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rates)
}

// Rates returns the directed pairs of the table.
func (t *RateTable) Rates() []Rate {
	if t == nil {
		return nil
	}
	out := make([]Rate, 0, len(t.rates))
	for p, r := range t.rates {
		out = append(out, Rate{From: p.from, To: p.to, Rate: r})
	}
	return out
}

// Validate checks that both codes are known ISO 4217 currencies and the rate is finite and positive.
func (r Rate) Validate() error {
	from, to := normalize(r.From), normalize(r.To)
	if err := validateCode(from); err != nil {
		return err
	}
	if err := validateCode(to); err != nil {
		return err
	}
	if r.Rate <= 0 || math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
		return fmt.Errorf("rate %s/%s = %v: %w", from, to, r.Rate, domain.ErrInvalidInput)
	}
	return nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateCode(code string) error {
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency code %q: %w", code, domain.ErrInvalidInput)
	}
	return nil
}
