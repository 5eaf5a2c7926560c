package resolution

import (
	"math"
	"time"

	"github.com/resolverd/resolverd/internal/domain"
)

// coefficientOfVariation returns stddev/mean of the price path, a unitless
// measure of relative volatility. Returns 0 for paths with fewer than two
// samples or a non-positive mean.
func coefficientOfVariation(path []domain.PriceSnapshot) float64 {
	if len(path) < 2 {
		return 0
	}
	var sum float64
	for _, s := range path {
		sum += s.Price
	}
	mean := sum / float64(len(path))
	if mean <= 0 {
		return 0
	}
	var sq float64
	for _, s := range path {
		d := s.Price - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(path))) / mean
}

// realizedVolatility returns the standard deviation of simple returns over
// the path, expressed as a percentage.
func realizedVolatility(path []domain.PriceSnapshot) float64 {
	if len(path) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		prev := path[i-1].Price
		if prev <= 0 {
			continue
		}
		returns = append(returns, (path[i].Price-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(returns))) * 100
}

// longestHold returns the longest duration for which the path continuously
// satisfies cond, measured between the first and last sample of the run.
// This is the confirmation-window primitive: a condition only counts as
// reached once it has held long enough to rule out a flash spike.
func longestHold(path []domain.PriceSnapshot, cond func(domain.PriceSnapshot) bool) time.Duration {
	var best time.Duration
	var inRun bool
	var start time.Time
	for _, s := range path {
		if cond(s) {
			if !inRun {
				inRun = true
				start = s.Timestamp
			}
			if d := s.Timestamp.Sub(start); d > best {
				best = d
			}
		} else {
			inRun = false
		}
	}
	return best
}

// maxConsecutive returns the length of the longest run of consecutive
// samples satisfying cond.
func maxConsecutive(path []domain.PriceSnapshot, cond func(domain.PriceSnapshot) bool) int {
	var best, run int
	for _, s := range path {
		if cond(s) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

// fractionSatisfying returns the share of samples satisfying cond.
func fractionSatisfying(path []domain.PriceSnapshot, cond func(domain.PriceSnapshot) bool) float64 {
	if len(path) == 0 {
		return 0
	}
	var n int
	for _, s := range path {
		if cond(s) {
			n++
		}
	}
	return float64(n) / float64(len(path))
}

// pathExtremes returns the minimum and maximum prices on the path.
func pathExtremes(path []domain.PriceSnapshot) (min, max float64) {
	if len(path) == 0 {
		return 0, 0
	}
	min, max = path[0].Price, path[0].Price
	for _, s := range path[1:] {
		if s.Price < min {
			min = s.Price
		}
		if s.Price > max {
			max = s.Price
		}
	}
	return min, max
}
