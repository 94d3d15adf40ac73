package currency

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StoredRate is an exchange rate persisted in the database.
type StoredRate struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RateRepository defines persistent storage for exchange rates.
type RateRepository interface {
	SaveRate(ctx context.Context, from, to string, rate decimal.Decimal) error
	GetAllRates(ctx context.Context) ([]StoredRate, error)
}

// PgRateRepository implements RateRepository with PostgreSQL.
type PgRateRepository struct {
	pool *pgxpool.Pool
}

// NewPgRateRepository creates a new PostgreSQL rate repository.
func NewPgRateRepository(pool *pgxpool.Pool) *PgRateRepository {
	return &PgRateRepository{pool: pool}
}

func (r *PgRateRepository) SaveRate(ctx context.Context, from, to string, rate decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO fx_rates (base_currency, quote_currency, rate, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (base_currency, quote_currency) DO UPDATE SET rate = $3, updated_at = NOW()`,
		from, to, rate)
	if err != nil {
		return fmt.Errorf("saving rate %s/%s: %w", from, to, err)
	}
	return nil
}

func (r *PgRateRepository) GetAllRates(ctx context.Context) ([]StoredRate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT base_currency, quote_currency, rate, updated_at
		 FROM fx_rates ORDER BY base_currency, quote_currency`)
	if err != nil {
		return nil, fmt.Errorf("getting all rates: %w", err)
	}
	defer rows.Close()

	var rates []StoredRate
	for rows.Next() {
		var s StoredRate
		if err := rows.Scan(&s.From, &s.To, &s.Rate, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning rate: %w", err)
		}
		rates = append(rates, s)
	}
	return rates, rows.Err()
}
