package resolution

import (
	"fmt"

	"github.com/resolverd/resolverd/internal/domain"
)

// supportHoldFraction is the share of observed samples that must stay above
// the level for a support-hold question to resolve yes.
const supportHoldFraction = 0.8

// resistanceBreakSamples is the number of consecutive samples that must
// close above the level for a resistance break.
const resistanceBreakSamples = 2

// evalSupportResistance decides a support/resistance question. The question
// or its resolution criteria must carry an unambiguous "support" or
// "resistance" tag; the overlapping break/above keyword sets these questions
// are phrased with cannot distinguish the two framings, so untaggable text
// resolves as disputed rather than guessing.
func (e *Evaluator) evalSupportResistance(in Input) Result {
	level, err := ExtractDollarTarget(in.Question)
	if err != nil {
		return disputed("no price level found in question")
	}

	kind := ExtractLevelKind(in.Question, in.Criteria)
	if kind == LevelUnknown {
		return disputed("cannot tell support from resistance framing")
	}

	path := in.Data.PriceHistory
	if len(path) < resistanceBreakSamples {
		return disputed("not enough samples to judge level behavior")
	}

	above := func(s domain.PriceSnapshot) bool { return s.Price > level }

	switch kind {
	case LevelResistance:
		// A break requires sustained closes above the level, not a wick.
		run := maxConsecutive(path, above)
		broke := run >= resistanceBreakSamples
		return Result{
			Outcome:     outcomeOf(broke),
			Confidence:  e.confidence(path),
			DisputeRisk: riskTier(path),
			Explanation: fmt.Sprintf("longest run above %.6f was %d samples (need %d)", level, run, resistanceBreakSamples),
		}
	default: // LevelSupport
		frac := fractionSatisfying(path, above)
		held := frac >= supportHoldFraction
		return Result{
			Outcome:     outcomeOf(held),
			Confidence:  e.confidence(path),
			DisputeRisk: riskTier(path),
			Explanation: fmt.Sprintf("price above %.6f for %.0f%% of samples (need %.0f%%)", level, frac*100, supportHoldFraction*100),
		}
	}
}
