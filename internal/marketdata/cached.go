package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mtlprog/folio/internal/domain"
)

// DefaultCacheTTL is used when CachedClient is created with a zero TTL.
const DefaultCacheTTL = 15 * time.Minute

// CachedClient caches price histories and quotes in front of a Client.
// Cache failures are logged and fall through to the provider.
type CachedClient struct {
	*Client
	cache Cache
	ttl   time.Duration
}

// NewCachedClient wraps client with cache.
func NewCachedClient(client *Client, cache Cache, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedClient{Client: client, cache: cache, ttl: ttl}
}

func historyKey(ticker string, from, to time.Time) string {
	return fmt.Sprintf("history:%s:%s:%s", strings.ToUpper(ticker), from.Format(time.DateOnly), to.Format(time.DateOnly))
}

func quoteKey(ticker string) string {
	return "quote:" + strings.ToUpper(ticker)
}

func (c *CachedClient) FetchHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.PriceObservation, error) {
	key := historyKey(ticker, from, to)

	var cached []domain.PriceObservation
	if ok, err := c.cache.Get(ctx, key, &cached); err != nil {
		slog.Warn("history cache read failed", "key", key, "error", err)
	} else if ok {
		return cached, nil
	}

	obs, err := c.Client.FetchHistory(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, obs, c.ttl); err != nil {
		slog.Warn("history cache write failed", "key", key, "error", err)
	}
	return obs, nil
}

func (c *CachedClient) FetchHistories(ctx context.Context, tickers []string, from, to time.Time) (map[string][]domain.PriceObservation, error) {
	return fetchHistories(ctx, c.concurrency, tickers, func(ctx context.Context, ticker string) ([]domain.PriceObservation, error) {
		return c.FetchHistory(ctx, ticker, from, to)
	})
}

func (c *CachedClient) FetchQuote(ctx context.Context, ticker string) (domain.Quote, error) {
	key := quoteKey(ticker)

	var cached domain.Quote
	if ok, err := c.cache.Get(ctx, key, &cached); err != nil {
		slog.Warn("quote cache read failed", "key", key, "error", err)
	} else if ok {
		return cached, nil
	}

	q, err := c.Client.FetchQuote(ctx, ticker)
	if err != nil {
		return domain.Quote{}, err
	}
	if err := c.cache.Set(ctx, key, q, c.ttl); err != nil {
		slog.Warn("quote cache write failed", "key", key, "error", err)
	}
	return q, nil
}

func (c *CachedClient) FetchQuotes(ctx context.Context, tickers []string) (map[string]domain.Quote, error) {
	return fetchQuotes(ctx, c.concurrency, tickers, c.FetchQuote)
}
