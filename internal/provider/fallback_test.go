package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolverd/resolverd/internal/domain"
)

type fakeInner struct {
	quote domain.Quote
	err   error
	calls int
}

func (f *fakeInner) Current(ctx context.Context, symbol string) (domain.Quote, error) {
	f.calls++
	return f.quote, f.err
}

func (f *fakeInner) Historical(ctx context.Context, symbol string, from, to time.Time, interval time.Duration) ([]domain.PriceSnapshot, []domain.VolumeSnapshot, error) {
	return nil, nil, f.err
}

func (f *fakeInner) Stats(ctx context.Context, symbol string) (domain.AssetStats, error) {
	return domain.AssetStats{}, f.err
}

func (f *fakeInner) Name() string { return "fake" }

type fakeCache struct {
	quotes map[string]domain.Quote
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{quotes: make(map[string]domain.Quote)}
}

func (c *fakeCache) SetQuote(ctx context.Context, symbol string, price, volume24h, marketCap float64, ts time.Time) error {
	c.sets++
	c.quotes[symbol] = domain.Quote{Symbol: symbol, Price: price, Volume24h: volume24h, MarketCap: marketCap, Timestamp: ts}
	return nil
}

func (c *fakeCache) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	q, ok := c.quotes[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	return q, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCurrent_WritesThroughToCache(t *testing.T) {
	inner := &fakeInner{quote: domain.Quote{Symbol: "WIF", Price: 2.40, Volume24h: 60e6}}
	cache := newFakeCache()
	p := NewCachingProvider(inner, cache, testLogger())

	q, err := p.Current(context.Background(), "WIF")
	require.NoError(t, err)
	assert.Equal(t, 2.40, q.Price)
	assert.Equal(t, 1, cache.sets)

	cached, err := cache.GetQuote(context.Background(), "WIF")
	require.NoError(t, err)
	assert.Equal(t, 2.40, cached.Price)
}

func TestCurrent_FallsBackToCache(t *testing.T) {
	inner := &fakeInner{err: domain.ErrProviderUnavailable}
	cache := newFakeCache()
	cache.quotes["WIF"] = domain.Quote{Symbol: "WIF", Price: 2.35}
	p := NewCachingProvider(inner, cache, testLogger())

	q, err := p.Current(context.Background(), "WIF")
	require.NoError(t, err)
	assert.Equal(t, 2.35, q.Price)
}

func TestCurrent_FallsBackToStaticTable(t *testing.T) {
	inner := &fakeInner{err: domain.ErrProviderUnavailable}
	p := NewCachingProvider(inner, newFakeCache(), testLogger())

	q, err := p.Current(context.Background(), "WIF")
	require.NoError(t, err)
	assert.Equal(t, lastKnownPrices["WIF"], q.Price)
	assert.Equal(t, "WIF", q.Symbol)
}

func TestCurrent_UnknownSymbolSurfacesError(t *testing.T) {
	inner := &fakeInner{err: domain.ErrProviderUnavailable}
	p := NewCachingProvider(inner, newFakeCache(), testLogger())

	_, err := p.Current(context.Background(), "NOTACOIN")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestCurrent_NoSymbolNeverFallsBack(t *testing.T) {
	inner := &fakeInner{err: domain.ErrNoSymbol}
	cache := newFakeCache()
	cache.quotes["WIF"] = domain.Quote{Symbol: "WIF", Price: 2.35}
	p := NewCachingProvider(inner, cache, testLogger())

	_, err := p.Current(context.Background(), "WIF")
	assert.ErrorIs(t, err, domain.ErrNoSymbol)
}

func TestCurrent_NilCacheUsesStaticTable(t *testing.T) {
	inner := &fakeInner{err: errors.New("boom")}
	p := NewCachingProvider(inner, nil, testLogger())

	q, err := p.Current(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, lastKnownPrices["BTC"], q.Price)
}
