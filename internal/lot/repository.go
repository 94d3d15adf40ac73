// Package lot stores purchase lots and manual price targets.
package lot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

// ErrNotFound indicates that the requested lot was not found.
var ErrNotFound = errors.New("lot not found")

// Repository defines persistent storage for lots and price targets.
type Repository interface {
	Create(ctx context.Context, l domain.Lot) (domain.Lot, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Lot, error)
	ListUsers(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, userID, id string) error
	CreateTarget(ctx context.Context, t domain.PriceTarget) (domain.PriceTarget, error)
	ListTargets(ctx context.Context, userID string) ([]domain.PriceTarget, error)
}

// Validate checks a lot before it is stored.
func Validate(l domain.Lot) error {
	switch {
	case strings.TrimSpace(l.UserID) == "":
		return fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	case strings.TrimSpace(l.Ticker) == "":
		return fmt.Errorf("ticker is required: %w", domain.ErrInvalidInput)
	case l.Quantity <= 0:
		return fmt.Errorf("quantity must be positive, got %v: %w", l.Quantity, domain.ErrInvalidInput)
	case l.PurchasePrice < 0:
		return fmt.Errorf("purchase price must not be negative, got %v: %w", l.PurchasePrice, domain.ErrInvalidInput)
	case l.PurchaseDate.IsZero():
		return fmt.Errorf("purchase date is required: %w", domain.ErrInvalidInput)
	case money.GetCurrency(strings.ToUpper(l.Currency)) == nil:
		return fmt.Errorf("unknown currency %q: %w", l.Currency, domain.ErrInvalidInput)
	}
	return nil
}

// ValidateTarget checks a price target before it is stored.
func ValidateTarget(t domain.PriceTarget) error {
	switch {
	case strings.TrimSpace(t.UserID) == "":
		return fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	case strings.TrimSpace(t.Ticker) == "":
		return fmt.Errorf("ticker is required: %w", domain.ErrInvalidInput)
	case t.Price <= 0:
		return fmt.Errorf("target price must be positive, got %v: %w", t.Price, domain.ErrInvalidInput)
	}
	return nil
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL lot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, l domain.Lot) (domain.Lot, error) {
	if err := Validate(l); err != nil {
		return domain.Lot{}, err
	}

	l.ID = uuid.NewString()
	l.Ticker = strings.ToUpper(l.Ticker)
	l.Currency = strings.ToUpper(l.Currency)
	l.PurchaseDate = domain.DateOnly(l.PurchaseDate)

	err := r.pool.QueryRow(ctx,
		`INSERT INTO lots (id, user_id, ticker, purchase_date, purchase_price, quantity, currency, country)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		l.ID, l.UserID, l.Ticker, l.PurchaseDate,
		decimal.NewFromFloat(l.PurchasePrice), decimal.NewFromFloat(l.Quantity),
		l.Currency, l.Country).Scan(&l.CreatedAt)
	if err != nil {
		return domain.Lot{}, fmt.Errorf("creating lot for %s: %w", l.Ticker, err)
	}
	return l, nil
}

func (r *PgRepository) ListByUser(ctx context.Context, userID string) ([]domain.Lot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, ticker, purchase_date, purchase_price, quantity, currency, country, created_at
		 FROM lots
		 WHERE user_id = $1
		 ORDER BY purchase_date, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	defer rows.Close()

	var lots []domain.Lot
	for rows.Next() {
		var (
			l          domain.Lot
			price, qty decimal.Decimal
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Ticker, &l.PurchaseDate, &price, &qty, &l.Currency, &l.Country, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}
		l.PurchasePrice = price.InexactFloat64()
		l.Quantity = qty.InexactFloat64()
		lots = append(lots, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lots: %w", err)
	}
	return lots, nil
}

func (r *PgRepository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM lots ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

func (r *PgRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lots WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting lot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) CreateTarget(ctx context.Context, t domain.PriceTarget) (domain.PriceTarget, error) {
	if err := ValidateTarget(t); err != nil {
		return domain.PriceTarget{}, err
	}

	t.ID = uuid.NewString()
	t.Ticker = strings.ToUpper(t.Ticker)

	err := r.pool.QueryRow(ctx,
		`INSERT INTO price_targets (id, user_id, ticker, price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		t.ID, t.UserID, t.Ticker, decimal.NewFromFloat(t.Price)).Scan(&t.CreatedAt)
	if err != nil {
		return domain.PriceTarget{}, fmt.Errorf("creating target for %s: %w", t.Ticker, err)
	}
	return t, nil
}

func (r *PgRepository) ListTargets(ctx context.Context, userID string) ([]domain.PriceTarget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, ticker, price, created_at
		 FROM price_targets
		 WHERE user_id = $1
		 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.PriceTarget
	for rows.Next() {
		var (
			t     domain.PriceTarget
			price decimal.Decimal
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Ticker, &price, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning target: %w", err)
		}
		t.Price = price.InexactFloat64()
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating targets: %w", err)
	}
	return targets, nil
}

var _ Repository = (*PgRepository)(nil)
