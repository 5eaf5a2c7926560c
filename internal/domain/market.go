package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive  MarketStatus = "active"
	MarketStatusPending MarketStatus = "pending"
	MarketStatusClosed  MarketStatus = "closed"
)

// Resolution is the terminal outcome of a market. Empty until the market is
// resolved; written exactly once.
type Resolution string

const (
	ResolutionYes      Resolution = "yes"
	ResolutionNo       Resolution = "no"
	ResolutionDisputed Resolution = "disputed"
)

// QuestionType is the detailed resolution taxonomy of a market question.
// It drives evaluator dispatch.
type QuestionType string

const (
	QuestionPrice             QuestionType = "price"
	QuestionVolume            QuestionType = "volume"
	QuestionMarketCap         QuestionType = "market_cap"
	QuestionTrend             QuestionType = "trend"
	QuestionSupportResistance QuestionType = "support_resistance"
	QuestionATHATL            QuestionType = "ath_atl"
	QuestionMomentum          QuestionType = "momentum"
	QuestionVolatility        QuestionType = "volatility"
	QuestionTimeSensitive     QuestionType = "time_sensitive"
)

// DisputeRisk is a tiered estimate of how likely a resolution is to be
// contested, derived from data volatility and quality.
type DisputeRisk string

const (
	DisputeRiskLow    DisputeRisk = "low"
	DisputeRiskMedium DisputeRisk = "medium"
	DisputeRiskHigh   DisputeRisk = "high"
)

// Market represents a prediction market as seen by the resolution subsystem.
// Question is the source of truth for target extraction and is immutable
// after creation.
type Market struct {
	ID                 string
	Question           string
	QuestionType       string // coarse, e.g. "yes_no"
	DetailedType       QuestionType
	ResolutionCriteria string // advisory free text, not machine-parsed beyond keywords
	ClosingDate        time.Time
	Status             MarketStatus
	Resolution         Resolution // empty until resolved
	ResolutionData     *ResolutionData
	DisputeReason      string
	ResolvedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DueForResolution reports whether the market is eligible for resolution at
// the given instant.
func (m Market) DueForResolution(now time.Time) bool {
	return m.Status == MarketStatusActive && !now.Before(m.ClosingDate)
}

// ResolutionData is the structured evidence snapshot recorded alongside a
// terminal resolution.
type ResolutionData struct {
	FinalPrice          float64          `json:"final_price"`
	FinalVolume         float64          `json:"final_volume"`
	FinalMarketCap      float64          `json:"final_market_cap"`
	PriceHistory        []PriceSnapshot  `json:"price_history,omitempty"`
	VolumeHistory       []VolumeSnapshot `json:"volume_history,omitempty"`
	ResolutionTimestamp time.Time        `json:"resolution_timestamp"`
	DataSource          string           `json:"data_source"`
	Confidence          float64          `json:"confidence"` // [0,1], informational only
	Explanation         string           `json:"explanation,omitempty"`
}

// ResolutionRecord is the decided output of a resolution attempt. The engine
// always produces one, even when data fetching or evaluation fails.
type ResolutionRecord struct {
	ID            string
	MarketID      string
	Resolution    Resolution
	Data          ResolutionData
	DisputeRisk   DisputeRisk
	DisputeReason string
	Fallback      bool // true when the conservative fallback heuristic was used
}

// ScheduledResolution is a unit of work produced by the scheduler for one
// due market.
type ScheduledResolution struct {
	MarketID           string
	Question           string
	DetailedType       QuestionType
	ResolutionCriteria string
	ClosingDate        time.Time
	Status             MarketStatus
	Attempts           int
}

// ResolutionUpdate is the terminal write applied to a market row.
type ResolutionUpdate struct {
	Status        MarketStatus
	Resolution    Resolution
	Data          *ResolutionData
	ResolvedAt    time.Time
	DisputeReason string
}

// ResolutionStats are read-only aggregate counts over the market store.
type ResolutionStats struct {
	Total             int64
	Active            int64
	Closed            int64
	PendingResolution int64
	ResolvedToday     int64
}
