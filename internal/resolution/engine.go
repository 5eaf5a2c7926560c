package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/resolverd/resolverd/internal/domain"
)

// EngineConfig tunes the orchestration around a single resolution.
type EngineConfig struct {
	// FetchTimeout bounds the external data fetch, the only
	// unbounded-latency step. A timeout is treated like any other fetch
	// failure and triggers the fallback path.
	FetchTimeout time.Duration

	// HistoryWindow is how far before the closing date historical samples
	// are retrieved.
	HistoryWindow time.Duration

	// SampleInterval is the spacing of historical samples.
	SampleInterval time.Duration
}

// DefaultEngineConfig returns the standard engine parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FetchTimeout:   30 * time.Second,
		HistoryWindow:  time.Hour,
		SampleInterval: time.Minute,
	}
}

// Engine wires symbol extraction, data fetching, and evaluation into one
// end-to-end resolution call. Its contract is totality: ResolveMarket always
// returns a decided record and never propagates fetch or evaluation errors
// to the caller.
type Engine struct {
	provider domain.MarketDataProvider
	eval     *Evaluator
	cfg      EngineConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine creates an Engine over the given provider and evaluator.
func NewEngine(provider domain.MarketDataProvider, eval *Evaluator, cfg EngineConfig, logger *slog.Logger) *Engine {
	return &Engine{
		provider: provider,
		eval:     eval,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "resolution_engine")),
		now:      time.Now,
	}
}

// ResolveMarket resolves one market end to end. Any failure in symbol
// extraction, data fetching, or evaluation is converted into the
// conservative fallback outcome; the caller always receives a decided
// record.
func (e *Engine) ResolveMarket(ctx context.Context, sr domain.ScheduledResolution) domain.ResolutionRecord {
	data, stats, err := e.fetch(ctx, sr)
	if err != nil {
		e.logger.WarnContext(ctx, "data fetch failed, using fallback resolution",
			slog.String("market_id", sr.MarketID),
			slog.String("error", err.Error()),
		)
		return e.fallback(sr, err)
	}

	res := e.eval.Evaluate(sr.DetailedType, Input{
		Question:    sr.Question,
		Criteria:    sr.ResolutionCriteria,
		ClosingDate: sr.ClosingDate,
		Data:        data,
		Stats:       stats,
	})

	rec := domain.ResolutionRecord{
		ID:          uuid.New().String(),
		MarketID:    sr.MarketID,
		Resolution:  res.Outcome,
		DisputeRisk: res.DisputeRisk,
		Data: domain.ResolutionData{
			FinalPrice:          data.FinalPrice,
			FinalVolume:         data.FinalVolume,
			FinalMarketCap:      data.FinalMarketCap,
			PriceHistory:        data.PriceHistory,
			VolumeHistory:       data.VolumeHistory,
			ResolutionTimestamp: e.now().UTC(),
			DataSource:          data.Source,
			Confidence:          res.Confidence,
			Explanation:         res.Explanation,
		},
	}
	if res.Outcome == domain.ResolutionDisputed {
		rec.DisputeReason = res.Explanation
	}

	e.logger.InfoContext(ctx, "market resolved",
		slog.String("market_id", sr.MarketID),
		slog.String("type", string(sr.DetailedType)),
		slog.String("resolution", string(rec.Resolution)),
		slog.Float64("confidence", rec.Data.Confidence),
		slog.String("dispute_risk", string(rec.DisputeRisk)),
	)
	return rec
}

// fetch extracts the token symbol and retrieves current plus historical
// market data within the configured timeout.
func (e *Engine) fetch(ctx context.Context, sr domain.ScheduledResolution) (domain.MarketData, *domain.AssetStats, error) {
	symbol, err := ExtractSymbol(sr.Question)
	if err != nil {
		return domain.MarketData{}, nil, fmt.Errorf("resolution: extract symbol: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	quote, err := e.provider.Current(fetchCtx, symbol)
	if err != nil {
		return domain.MarketData{}, nil, fmt.Errorf("resolution: current data for %s: %w", symbol, err)
	}

	// A missing path degrades the evidence but does not block resolution;
	// handlers fall back to the final observation with reduced confidence.
	from := sr.ClosingDate.Add(-e.cfg.HistoryWindow)
	prices, volumes, err := e.provider.Historical(fetchCtx, symbol, from, sr.ClosingDate, e.cfg.SampleInterval)
	if err != nil {
		e.logger.WarnContext(ctx, "historical samples unavailable",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		prices, volumes = nil, nil
	}

	data := domain.MarketData{
		Symbol:         symbol,
		FinalPrice:     quote.Price,
		FinalVolume:    quote.Volume24h,
		FinalMarketCap: quote.MarketCap,
		PriceHistory:   prices,
		VolumeHistory:  volumes,
		Source:         e.provider.Name(),
	}

	// Historical extremes are only needed by ath_atl questions; a failure
	// here degrades that one handler to disputed rather than failing the
	// whole fetch.
	var stats *domain.AssetStats
	if sr.DetailedType == domain.QuestionATHATL {
		if s, err := e.provider.Stats(fetchCtx, symbol); err == nil {
			stats = &s
		} else {
			e.logger.WarnContext(ctx, "asset stats unavailable",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}

	return data, stats, nil
}

// fallbackConfidence is recorded on fallback outcomes: decided, but on a
// heuristic rather than evidence.
const fallbackConfidence = 0.6

// fallback computes the conservative outcome used when normal evaluation is
// impossible. Numeric targets in this domain are typically optimistic and
// unmet, so the heuristic answers no. The pipeline never stalls on a data
// error; that is the designed tradeoff.
func (e *Engine) fallback(sr domain.ScheduledResolution, cause error) domain.ResolutionRecord {
	return domain.ResolutionRecord{
		ID:          uuid.New().String(),
		MarketID:    sr.MarketID,
		Resolution:  domain.ResolutionNo,
		DisputeRisk: domain.DisputeRiskHigh,
		Fallback:    true,
		Data: domain.ResolutionData{
			ResolutionTimestamp: e.now().UTC(),
			DataSource:          "fallback",
			Confidence:          fallbackConfidence,
			Explanation:         fmt.Sprintf("fallback resolution after data error: %v", cause),
		},
		DisputeReason: "fallback resolution after data error",
	}
}
