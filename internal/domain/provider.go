package domain

import (
	"context"
	"time"
)

// MarketDataProvider retrieves price/volume/market-cap evidence for a token.
// Implementations call out to an external price-data API.
type MarketDataProvider interface {
	// Current returns the latest quote for the token.
	Current(ctx context.Context, symbol string) (Quote, error)

	// Historical returns price and volume samples between from and to at
	// the given interval, ordered by timestamp ascending.
	Historical(ctx context.Context, symbol string, from, to time.Time, interval time.Duration) ([]PriceSnapshot, []VolumeSnapshot, error)

	// Stats returns provider-recorded historical extremes for the token.
	Stats(ctx context.Context, symbol string) (AssetStats, error)

	// Name is the data-source label recorded in resolution data.
	Name() string
}
