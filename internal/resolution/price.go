package resolution

import (
	"errors"
	"fmt"

	"github.com/resolverd/resolverd/internal/domain"
)

// evalPrice decides a price-target question. The target counts as reached
// only if the price path contains a sub-interval of at least the
// confirmation window during which the price stays at or beyond the target
// in the asked direction. A momentary touch is not a reach.
func (e *Evaluator) evalPrice(in Input) Result {
	target, err := ExtractDollarTarget(in.Question)
	if errors.Is(err, domain.ErrNoTarget) {
		return disputed("no dollar target found in question")
	}

	dir := ExtractDirection(in.Question)
	cond := func(s domain.PriceSnapshot) bool { return s.Price >= target }
	if dir == DirectionBelow {
		cond = func(s domain.PriceSnapshot) bool { return s.Price <= target }
	}

	path := in.Data.PriceHistory
	if len(path) < 2 {
		// Without a usable path, fall back to the final observation alone;
		// confidence reflects the thin evidence.
		reached := cond(domain.PriceSnapshot{Price: in.Data.FinalPrice})
		return Result{
			Outcome:     outcomeOf(reached),
			Confidence:  0.3,
			DisputeRisk: domain.DisputeRiskHigh,
			Explanation: fmt.Sprintf("single observation %.6f vs target %.6f", in.Data.FinalPrice, target),
		}
	}

	held := longestHold(path, cond)
	reached := held >= e.cfg.ConfirmationWindow

	word := "above"
	if dir == DirectionBelow {
		word = "below"
	}
	return Result{
		Outcome:     outcomeOf(reached),
		Confidence:  e.confidence(path),
		DisputeRisk: riskTier(path),
		Explanation: fmt.Sprintf("price held %s %.6f for %s (required %s)", word, target, held, e.cfg.ConfirmationWindow),
	}
}

// evalVolume decides a 24h-volume-target question. The boundary is
// inclusive: hitting the target exactly resolves yes. Volume data from the
// provider is considered reliable, so confidence is fixed high and dispute
// risk low.
func (e *Evaluator) evalVolume(in Input) Result {
	target, err := ExtractMoneyTarget(in.Question)
	if err != nil {
		return disputed("no volume target found in question")
	}

	reached := in.Data.FinalVolume >= target
	return Result{
		Outcome:     outcomeOf(reached),
		Confidence:  0.9,
		DisputeRisk: domain.DisputeRiskLow,
		Explanation: fmt.Sprintf("24h volume %.0f vs target %.0f", in.Data.FinalVolume, target),
	}
}

// evalMarketCap mirrors evalVolume over market capitalization.
func (e *Evaluator) evalMarketCap(in Input) Result {
	target, err := ExtractMoneyTarget(in.Question)
	if err != nil {
		return disputed("no market cap target found in question")
	}

	reached := in.Data.FinalMarketCap >= target
	return Result{
		Outcome:     outcomeOf(reached),
		Confidence:  0.9,
		DisputeRisk: domain.DisputeRiskLow,
		Explanation: fmt.Sprintf("market cap %.0f vs target %.0f", in.Data.FinalMarketCap, target),
	}
}
