package domain

import "time"

// PriceSnapshot is an immutable timestamped price observation used as
// evidentiary input to an evaluator.
type PriceSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Source    string    `json:"source"`
}

// VolumeSnapshot is an immutable timestamped volume observation.
type VolumeSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Volume24h float64   `json:"volume_24h"`
	Volume1h  float64   `json:"volume_1h"`
	Source    string    `json:"source"`
}

// MarketData bundles everything the fetcher observed for one token around a
// market's closing time.
type MarketData struct {
	Symbol         string
	FinalPrice     float64
	FinalVolume    float64
	FinalMarketCap float64
	PriceHistory   []PriceSnapshot
	VolumeHistory  []VolumeSnapshot
	Source         string
}

// AssetStats holds provider-recorded historical extremes for a token.
type AssetStats struct {
	Symbol       string
	AllTimeHigh  float64
	AllTimeLow   float64
	RetrievedAt  time.Time
}
