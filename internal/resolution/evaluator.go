package resolution

import (
	"fmt"
	"time"

	"github.com/resolverd/resolverd/internal/domain"
)

// Input is everything a handler may consult when deciding an outcome.
type Input struct {
	Question    string
	Criteria    string
	ClosingDate time.Time
	Data        domain.MarketData
	Stats       *domain.AssetStats // nil unless the type needs historical extremes
}

// Result is the decided output of a single handler.
type Result struct {
	Outcome     domain.Resolution
	Confidence  float64
	DisputeRisk domain.DisputeRisk
	Explanation string
}

// disputed builds the uniform fail-closed result: ambiguous or unparseable
// input must never produce a false yes/no.
func disputed(explanation string) Result {
	return Result{
		Outcome:     domain.ResolutionDisputed,
		Confidence:  0,
		DisputeRisk: domain.DisputeRiskHigh,
		Explanation: explanation,
	}
}

// EvaluatorConfig tunes the evaluation rules.
type EvaluatorConfig struct {
	// ConfirmationWindow is the minimum duration a price condition must
	// hold before it counts as reached, rejecting flash-manipulation
	// spikes.
	ConfirmationWindow time.Duration

	// AdequateSamples is the sample count at which the adequacy component
	// of the confidence score saturates.
	AdequateSamples int
}

// DefaultEvaluatorConfig returns the standard evaluation parameters.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		ConfirmationWindow: 2 * time.Minute,
		AdequateSamples:    20,
	}
}

type handler func(Input) Result

// Evaluator maps detailed question types to their decision rules. All
// handlers are pure; evaluation never fails, it resolves to disputed
// instead.
type Evaluator struct {
	cfg      EvaluatorConfig
	handlers map[domain.QuestionType]handler
}

// NewEvaluator builds the dispatch table over the nine question types.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	e := &Evaluator{cfg: cfg}
	e.handlers = map[domain.QuestionType]handler{
		domain.QuestionPrice:             e.evalPrice,
		domain.QuestionVolume:            e.evalVolume,
		domain.QuestionMarketCap:         e.evalMarketCap,
		domain.QuestionTrend:             e.evalTrend,
		domain.QuestionSupportResistance: e.evalSupportResistance,
		domain.QuestionATHATL:            e.evalATHATL,
		domain.QuestionMomentum:          e.evalMomentum,
		domain.QuestionVolatility:        e.evalVolatility,
		domain.QuestionTimeSensitive:     e.evalTimeSensitive,
	}
	return e
}

// Evaluate dispatches to the handler for the given type. An unrecognized
// type is a valid terminal outcome (disputed), not an error.
func (e *Evaluator) Evaluate(qt domain.QuestionType, in Input) Result {
	h, ok := e.handlers[qt]
	if !ok {
		return disputed(fmt.Sprintf("unrecognized question type %q", qt))
	}
	return h(in)
}

// confidence blends price-path stability (inverse coefficient of variation)
// with sample-count adequacy.
func (e *Evaluator) confidence(path []domain.PriceSnapshot) float64 {
	cv := coefficientOfVariation(path)
	stability := 1 - cv*10 // 10% relative volatility zeroes the component
	if stability < 0 {
		stability = 0
	}
	adequacy := float64(len(path)) / float64(e.cfg.AdequateSamples)
	if adequacy > 1 {
		adequacy = 1
	}
	c := 0.7*stability + 0.3*adequacy
	if c > 1 {
		c = 1
	}
	return c
}

// riskTier maps relative path volatility to a dispute-risk tier.
func riskTier(path []domain.PriceSnapshot) domain.DisputeRisk {
	cv := coefficientOfVariation(path)
	switch {
	case cv < 0.02:
		return domain.DisputeRiskLow
	case cv < 0.05:
		return domain.DisputeRiskMedium
	default:
		return domain.DisputeRiskHigh
	}
}

func outcomeOf(yes bool) domain.Resolution {
	if yes {
		return domain.ResolutionYes
	}
	return domain.ResolutionNo
}
