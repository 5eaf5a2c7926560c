// Package resolution implements the market resolution core: target
// extraction from free-text questions, per-question-type outcome evaluation,
// and the orchestrating engine that always produces a decided result.
package resolution

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/resolverd/resolverd/internal/domain"
)

// knownSymbols is the fixed allowlist of tickers that can appear in market
// questions. Extraction scans the question for an exact substring match;
// order matters, the first hit wins.
var knownSymbols = []string{
	"BTC", "ETH", "SOL", "WIF", "BONK", "JUP", "PYTH", "JTO",
	"DOGE", "SHIB", "PEPE", "ADA", "XRP", "AVAX", "LINK", "DOT",
	"MATIC", "NEAR", "APT", "SUI", "ARB", "OP", "INJ", "TIA",
}

var (
	dollarRe  = regexp.MustCompile(`\$([0-9][0-9,]*(?:\.[0-9]+)?)`)
	percentRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`)
	// moneyRe matches abbreviated dollar amounts like $50M or $1.2B.
	moneyRe = regexp.MustCompile(`\$([0-9]+(?:\.[0-9]+)?)\s*([MmBbKk])\b`)
)

// ExtractSymbol scans question text for a known token ticker. It returns
// domain.ErrNoSymbol when no ticker from the allowlist appears; callers must
// treat that as a hard failure since resolution cannot proceed without a
// symbol.
func ExtractSymbol(question string) (string, error) {
	upper := strings.ToUpper(question)
	for _, sym := range knownSymbols {
		if containsWord(upper, sym) {
			return sym, nil
		}
	}
	return "", domain.ErrNoSymbol
}

// containsWord reports whether s contains w as a standalone token, so "OP"
// does not match inside "DROP".
func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		i += idx
		beforeOK := i == 0 || !isAlnum(s[i-1])
		after := i + len(w)
		afterOK := after >= len(s) || !isAlnum(s[after])
		if beforeOK && afterOK {
			return true
		}
		idx = i + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// ExtractDollarTarget parses the first $<number> amount in the question.
// Returns domain.ErrNoTarget when no dollar amount is present.
func ExtractDollarTarget(question string) (float64, error) {
	m := dollarRe.FindStringSubmatch(question)
	if m == nil {
		return 0, domain.ErrNoTarget
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, domain.ErrNoTarget
	}
	return v, nil
}

// ExtractPercentTarget parses the first <number>% value in the question.
func ExtractPercentTarget(question string) (float64, error) {
	m := percentRe.FindStringSubmatch(question)
	if m == nil {
		return 0, domain.ErrNoTarget
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, domain.ErrNoTarget
	}
	return v, nil
}

// ExtractMoneyTarget parses abbreviated dollar amounts ($50M, $1.2B, $900K)
// used for volume and market-cap targets, returning the expanded value.
func ExtractMoneyTarget(question string) (float64, error) {
	m := moneyRe.FindStringSubmatch(question)
	if m == nil {
		// A plain dollar amount is still a valid volume/cap target.
		return ExtractDollarTarget(question)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, domain.ErrNoTarget
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		v *= 1e3
	case "M":
		v *= 1e6
	case "B":
		v *= 1e9
	}
	return v, nil
}

// Direction is the price direction implied by the question wording.
type Direction int

const (
	DirectionAbove Direction = iota
	DirectionBelow
)

var belowWords = []string{"below", "under", "drop", "fall", "dip", "crash", "decline"}

// ExtractDirection determines whether the question asks about the price
// going above or below its target. Wording like "reach", "exceed", "above"
// and "hit" implies above; "below", "drop", "fall" imply below. Above is the
// default when no keyword matches, reflecting how these questions are
// typically phrased.
func ExtractDirection(question string) Direction {
	lower := strings.ToLower(question)
	for _, w := range belowWords {
		if strings.Contains(lower, w) {
			return DirectionBelow
		}
	}
	return DirectionAbove
}

// TrendDirection is the movement direction claimed by a trend or momentum
// question.
type TrendDirection int

const (
	TrendUnknown TrendDirection = iota
	TrendUp
	TrendDown
)

var (
	upWords   = []string{"up", "rise", "gain", "increase", "climb", "pump", "higher"}
	downWords = []string{"down", "fall", "drop", "decrease", "lose", "dump", "lower"}
)

// ExtractTrendDirection parses the claimed direction out of a trend-style
// question. Ambiguous wording (both or neither direction present) returns
// TrendUnknown, which evaluators treat as a disputed result.
func ExtractTrendDirection(question string) TrendDirection {
	upper := strings.ToUpper(question)
	up, down := false, false
	for _, w := range upWords {
		if containsWord(upper, strings.ToUpper(w)) {
			up = true
			break
		}
	}
	for _, w := range downWords {
		if containsWord(upper, strings.ToUpper(w)) {
			down = true
			break
		}
	}
	switch {
	case up && !down:
		return TrendUp
	case down && !up:
		return TrendDown
	default:
		return TrendUnknown
	}
}

// LevelKind tags a support/resistance question. The keyword sets for the
// two framings overlap in the wild ("break above" is used for both), so the
// tag must come from an unambiguous mention of "support" or "resistance";
// anything else is unmappable and resolves as disputed.
type LevelKind int

const (
	LevelUnknown LevelKind = iota
	LevelSupport
	LevelResistance
)

// ExtractLevelKind inspects the question and resolution criteria for an
// unambiguous support/resistance tag.
func ExtractLevelKind(question, criteria string) LevelKind {
	text := strings.ToLower(question + " " + criteria)
	sup := strings.Contains(text, "support")
	res := strings.Contains(text, "resistance")
	switch {
	case sup && !res:
		return LevelSupport
	case res && !sup:
		return LevelResistance
	default:
		return LevelUnknown
	}
}
