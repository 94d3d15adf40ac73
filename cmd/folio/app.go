package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/folio/internal/config"
	"github.com/mtlprog/folio/internal/currency"
	"github.com/mtlprog/folio/internal/database"
	"github.com/mtlprog/folio/internal/lot"
	"github.com/mtlprog/folio/internal/marketdata"
	"github.com/mtlprog/folio/internal/portfolio"
	"github.com/mtlprog/folio/internal/report"
	"github.com/mtlprog/folio/internal/valuation"
)

// services holds everything the commands share.
type services struct {
	pool       *pgxpool.Pool
	lots       *lot.PgRepository
	currency   *currency.Service
	valuation  *valuation.Service
	portfolios *portfolio.Service
	reports    *report.Service
	closers    []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newServices connects to the database, runs migrations and wires the services.
func newServices(ctx context.Context, cfg config.Config) (*services, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.PoolSize())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	s := &services{pool: pool, closers: []func(){pool.Close}}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		s.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	client := marketdata.NewClient(marketdata.ClientConfig{
		BaseURL:     cfg.MarketDataURL,
		APIKey:      cfg.MarketDataAPIKey,
		Timeout:     cfg.MarketDataTimeout,
		RetryMax:    cfg.MarketDataRetryMax,
		Concurrency: cfg.MarketDataConcurrency,
	})

	var cache marketdata.Cache = marketdata.NewMemoryCache()
	if cfg.RedisURL != "" {
		rdb, err := marketdata.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, using in-process cache", "error", err)
		} else {
			cache = marketdata.NewRedisCache(rdb, "folio:")
			s.closers = append(s.closers, func() { _ = rdb.Close() })
		}
	}
	market := marketdata.NewCachedClient(client, cache, cfg.CacheTTL)

	s.currency = currency.NewService(client, currency.NewPgRateRepository(pool))
	if err := s.currency.Load(ctx); err != nil {
		slog.Warn("loading stored exchange rates", "error", err)
	}

	s.lots = lot.NewPgRepository(pool)
	s.valuation = valuation.NewService(market, s.currency, valuation.Params{
		ShortTermGrowth:  cfg.DCFShortTermGrowth,
		LongTermGrowth:   cfg.DCFLongTermGrowth,
		DiscountRate:     cfg.DCFDiscountRate,
		TerminalMultiple: cfg.DCFTerminalMultiple,
	})
	s.portfolios = portfolio.NewService(s.lots, s.lots, market, s.currency, portfolio.Config{
		BaseCurrency: cfg.BaseCurrency,
		Workers:      cfg.BreakdownWorkers,
		MaxPoints:    cfg.BreakdownMaxPoints,
	})
	s.reports = report.NewService(s.portfolios, report.NewPgRepository(pool))

	return s, nil
}
