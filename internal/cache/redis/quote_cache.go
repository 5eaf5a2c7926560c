package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resolverd/resolverd/internal/domain"
)

// QuoteCache implements domain.PriceCache using Redis hashes with a TTL.
// Each token's last-known quote is stored at key "quote:{symbol}"; the TTL
// is the cache's eviction policy, so stale quotes age out instead of feeding
// old prices into resolutions indefinitely.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client. A zero ttl
// disables expiry.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// SetQuote stores the last-known quote for a token.
func (qc *QuoteCache) SetQuote(ctx context.Context, symbol string, price, volume24h, marketCap float64, ts time.Time) error {
	key := quoteKey(symbol)
	fields := map[string]interface{}{
		"price":      strconv.FormatFloat(price, 'f', -1, 64),
		"volume_24h": strconv.FormatFloat(volume24h, 'f', -1, 64),
		"market_cap": strconv.FormatFloat(marketCap, 'f', -1, 64),
		"ts":         strconv.FormatInt(ts.UnixNano(), 10),
	}
	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if qc.ttl > 0 {
		pipe.Expire(ctx, key, qc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", symbol, err)
	}
	return nil
}

// GetQuote retrieves the last-known quote for a token. It returns
// domain.ErrNotFound when the key does not exist or has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}

	q := domain.Quote{Symbol: symbol}
	if q.Price, err = parseField(vals, "price", symbol); err != nil {
		return domain.Quote{}, err
	}
	if q.Volume24h, err = parseField(vals, "volume_24h", symbol); err != nil {
		return domain.Quote{}, err
	}
	if q.MarketCap, err = parseField(vals, "market_cap", symbol); err != nil {
		return domain.Quote{}, err
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse quote ts %s: %w", symbol, err)
	}
	q.Timestamp = time.Unix(0, tsNano).UTC()

	return q, nil
}

func parseField(vals map[string]string, field, symbol string) (float64, error) {
	s, ok := vals[field]
	if !ok {
		return 0, domain.ErrNotFound
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse quote %s for %s: %w", field, symbol, err)
	}
	return v, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*QuoteCache)(nil)
