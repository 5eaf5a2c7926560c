package domain

import (
	"context"
	"time"
)

// PriceCache holds last-known token prices with a TTL eviction policy. It is
// injected into the data fetcher so degraded provider availability can fall
// back to recent observations instead of failing outright.
type PriceCache interface {
	SetQuote(ctx context.Context, symbol string, price, volume24h, marketCap float64, ts time.Time) error
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// Quote is a cached last-known observation for a token.
type Quote struct {
	Symbol    string
	Price     float64
	Volume24h float64
	MarketCap float64
	Timestamp time.Time
}

// LockManager provides distributed locking, used to guard per-market
// resolution against overlapping scheduler runs.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
