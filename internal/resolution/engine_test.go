package resolution

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resolverd/resolverd/internal/domain"
)

// fakeProvider is a scriptable MarketDataProvider for engine tests.
type fakeProvider struct {
	current    func(ctx context.Context, symbol string) (domain.Quote, error)
	historical func(ctx context.Context, symbol string, from, to time.Time, interval time.Duration) ([]domain.PriceSnapshot, []domain.VolumeSnapshot, error)
	stats      func(ctx context.Context, symbol string) (domain.AssetStats, error)
}

func (f *fakeProvider) Current(ctx context.Context, symbol string) (domain.Quote, error) {
	return f.current(ctx, symbol)
}

func (f *fakeProvider) Historical(ctx context.Context, symbol string, from, to time.Time, interval time.Duration) ([]domain.PriceSnapshot, []domain.VolumeSnapshot, error) {
	if f.historical == nil {
		return nil, nil, domain.ErrProviderUnavailable
	}
	return f.historical(ctx, symbol, from, to, interval)
}

func (f *fakeProvider) Stats(ctx context.Context, symbol string) (domain.AssetStats, error) {
	if f.stats == nil {
		return domain.AssetStats{}, domain.ErrProviderUnavailable
	}
	return f.stats(ctx, symbol)
}

func (f *fakeProvider) Name() string { return "fake" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(p domain.MarketDataProvider) *Engine {
	return NewEngine(p, newTestEvaluator(), DefaultEngineConfig(), discardLogger())
}

func testScheduled(question string, qt domain.QuestionType) domain.ScheduledResolution {
	return domain.ScheduledResolution{
		MarketID:     "mkt-1",
		Question:     question,
		DetailedType: qt,
		ClosingDate:  testBase,
		Status:       domain.MarketStatusPending,
	}
}

func TestResolveMarket_FallbackOnFetchFailure(t *testing.T) {
	p := &fakeProvider{
		current: func(ctx context.Context, symbol string) (domain.Quote, error) {
			return domain.Quote{}, domain.ErrProviderUnavailable
		},
	}
	e := newTestEngine(p)

	rec := e.ResolveMarket(context.Background(), testScheduled("Will WIF reach $2.50?", domain.QuestionPrice))

	assert.Equal(t, domain.ResolutionNo, rec.Resolution)
	assert.True(t, rec.Fallback)
	assert.Equal(t, 0.6, rec.Data.Confidence)
	assert.Equal(t, domain.DisputeRiskHigh, rec.DisputeRisk)
	assert.Equal(t, "fallback", rec.Data.DataSource)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Data.ResolutionTimestamp.IsZero())
}

func TestResolveMarket_FallbackOnUnknownSymbol(t *testing.T) {
	p := &fakeProvider{
		current: func(ctx context.Context, symbol string) (domain.Quote, error) {
			t.Fatal("Current must not be called without a symbol")
			return domain.Quote{}, nil
		},
	}
	e := newTestEngine(p)

	rec := e.ResolveMarket(context.Background(), testScheduled("Will it rain tomorrow?", domain.QuestionPrice))

	assert.Equal(t, domain.ResolutionNo, rec.Resolution)
	assert.True(t, rec.Fallback)
}

func TestResolveMarket_HappyPath(t *testing.T) {
	p := &fakeProvider{
		current: func(ctx context.Context, symbol string) (domain.Quote, error) {
			return domain.Quote{Symbol: symbol, Price: 2.40, Volume24h: 60e6, MarketCap: 2.4e9}, nil
		},
		historical: func(ctx context.Context, symbol string, from, to time.Time, interval time.Duration) ([]domain.PriceSnapshot, []domain.VolumeSnapshot, error) {
			return pathAt(time.Minute, 2.45, 2.52, 2.53, 2.54, 2.52, 2.51, 2.40), nil, nil
		},
	}
	e := newTestEngine(p)

	rec := e.ResolveMarket(context.Background(), testScheduled("Will WIF reach $2.50 in the next 24H?", domain.QuestionPrice))

	assert.Equal(t, domain.ResolutionYes, rec.Resolution)
	assert.False(t, rec.Fallback)
	assert.Equal(t, "fake", rec.Data.DataSource)
	assert.Equal(t, 2.40, rec.Data.FinalPrice)
	assert.Len(t, rec.Data.PriceHistory, 7)
}

func TestResolveMarket_HistoricalFailureIsNotFatal(t *testing.T) {
	p := &fakeProvider{
		current: func(ctx context.Context, symbol string) (domain.Quote, error) {
			return domain.Quote{Symbol: symbol, Price: 2.60}, nil
		},
	}
	e := newTestEngine(p)

	// Historical fetch fails; the price handler decides on the final
	// observation alone instead of falling back.
	rec := e.ResolveMarket(context.Background(), testScheduled("Will WIF reach $2.50?", domain.QuestionPrice))

	assert.Equal(t, domain.ResolutionYes, rec.Resolution)
	assert.False(t, rec.Fallback)
	assert.Equal(t, 0.3, rec.Data.Confidence)
}

func TestResolveMarket_DisputedCarriesReason(t *testing.T) {
	p := &fakeProvider{
		current: func(ctx context.Context, symbol string) (domain.Quote, error) {
			return domain.Quote{Symbol: symbol, Price: 99000}, nil
		},
	}
	e := newTestEngine(p)

	rec := e.ResolveMarket(context.Background(), testScheduled("Will BTC reach $100,000 within the hour?", domain.QuestionTimeSensitive))

	assert.Equal(t, domain.ResolutionDisputed, rec.Resolution)
	assert.NotEmpty(t, rec.DisputeReason)
	assert.False(t, rec.Fallback)
}
