package resolution

import (
	"fmt"
)

// evalTrend decides a trend-direction question with a majority-direction
// test over the price path: the claimed direction must win the majority of
// step moves and the net move must agree with it.
func (e *Evaluator) evalTrend(in Input) Result {
	dir := ExtractTrendDirection(in.Question)
	if dir == TrendUnknown {
		return disputed("no unambiguous trend direction in question")
	}

	path := in.Data.PriceHistory
	if len(path) < 3 {
		return disputed("not enough samples to judge a trend")
	}

	var upSteps, steps int
	for i := 1; i < len(path); i++ {
		if path[i].Price == path[i-1].Price {
			continue
		}
		steps++
		if path[i].Price > path[i-1].Price {
			upSteps++
		}
	}
	if steps == 0 {
		return disputed("price path is flat")
	}

	upFrac := float64(upSteps) / float64(steps)
	netUp := path[len(path)-1].Price > path[0].Price

	var matched bool
	if dir == TrendUp {
		matched = upFrac > 0.5 && netUp
	} else {
		matched = upFrac < 0.5 && !netUp
	}

	return Result{
		Outcome:     outcomeOf(matched),
		Confidence:  e.confidence(path),
		DisputeRisk: riskTier(path),
		Explanation: fmt.Sprintf("%.0f%% of moves were up, net change %.6f", upFrac*100, path[len(path)-1].Price-path[0].Price),
	}
}

// momentumSustainFraction is the share of step moves within the momentum
// sub-window that must agree with the claimed direction.
const momentumSustainFraction = 0.8

// evalMomentum checks for a sustained directional move over the final third
// of the path.
func (e *Evaluator) evalMomentum(in Input) Result {
	dir := ExtractTrendDirection(in.Question)
	if dir == TrendUnknown {
		return disputed("no unambiguous momentum direction in question")
	}

	path := in.Data.PriceHistory
	if len(path) < 6 {
		return disputed("not enough samples to judge momentum")
	}

	window := path[len(path)*2/3:]
	var agree, steps int
	for i := 1; i < len(window); i++ {
		if window[i].Price == window[i-1].Price {
			continue
		}
		steps++
		up := window[i].Price > window[i-1].Price
		if (dir == TrendUp) == up {
			agree++
		}
	}
	if steps == 0 {
		return disputed("price path is flat in momentum window")
	}

	frac := float64(agree) / float64(steps)
	netAgrees := (window[len(window)-1].Price > window[0].Price) == (dir == TrendUp)
	sustained := frac >= momentumSustainFraction && netAgrees

	return Result{
		Outcome:     outcomeOf(sustained),
		Confidence:  e.confidence(path),
		DisputeRisk: riskTier(path),
		Explanation: fmt.Sprintf("%.0f%% of moves in final window agreed with claimed direction", frac*100),
	}
}

// evalVolatility compares realized volatility of returns over the window
// against the percentage target in the question. "Below/under" wording
// inverts the comparison.
func (e *Evaluator) evalVolatility(in Input) Result {
	target, err := ExtractPercentTarget(in.Question)
	if err != nil {
		return disputed("no percentage target found in question")
	}

	path := in.Data.PriceHistory
	if len(path) < 3 {
		return disputed("not enough samples to measure volatility")
	}

	vol := realizedVolatility(path)
	var reached bool
	if ExtractDirection(in.Question) == DirectionBelow {
		reached = vol <= target
	} else {
		reached = vol >= target
	}

	return Result{
		Outcome:     outcomeOf(reached),
		Confidence:  e.confidence(path),
		DisputeRisk: riskTier(path),
		Explanation: fmt.Sprintf("realized volatility %.2f%% vs target %.2f%%", vol, target),
	}
}

// evalATHATL decides whether the price path set a new all-time high or low
// against the provider-recorded extreme. Without provider stats there is
// nothing to compare against, so the result is disputed.
func (e *Evaluator) evalATHATL(in Input) Result {
	if in.Stats == nil {
		return disputed("no historical extremes available")
	}

	path := in.Data.PriceHistory
	lo, hi := pathExtremes(path)
	if len(path) == 0 {
		lo, hi = in.Data.FinalPrice, in.Data.FinalPrice
	} else {
		if in.Data.FinalPrice > hi {
			hi = in.Data.FinalPrice
		}
		if in.Data.FinalPrice > 0 && in.Data.FinalPrice < lo {
			lo = in.Data.FinalPrice
		}
	}

	dir := ExtractTrendDirection(in.Question)
	isLowQuestion := dir == TrendDown
	var reached bool
	var expl string
	if isLowQuestion {
		reached = in.Stats.AllTimeLow > 0 && lo <= in.Stats.AllTimeLow
		expl = fmt.Sprintf("path low %.6f vs all-time low %.6f", lo, in.Stats.AllTimeLow)
	} else {
		reached = hi >= in.Stats.AllTimeHigh
		expl = fmt.Sprintf("path high %.6f vs all-time high %.6f", hi, in.Stats.AllTimeHigh)
	}

	return Result{
		Outcome:     outcomeOf(reached),
		Confidence:  e.confidence(path),
		DisputeRisk: riskTier(path),
		Explanation: expl,
	}
}

// evalTimeSensitive is a designed terminal stub: deadline-phrase parsing is
// not supported, and these questions always resolve as disputed for human
// review.
func (e *Evaluator) evalTimeSensitive(in Input) Result {
	return disputed("time-boxed questions are not yet supported")
}
